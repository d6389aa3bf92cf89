// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/CrawX/go-imap-triage/agent"
	"github.com/CrawX/go-imap-triage/ai"
	"github.com/CrawX/go-imap-triage/api"
	"github.com/CrawX/go-imap-triage/config"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/drafting"
	"github.com/CrawX/go-imap-triage/events"
	"github.com/CrawX/go-imap-triage/imapconnection"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/persistence"
	"github.com/CrawX/go-imap-triage/triage"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// env holds everything a command needs. It is opened on the first command
// action and closed once the command returns.
type env struct {
	in  io.Reader
	out io.Writer

	ctx    context.Context
	cancel context.CancelFunc

	conf     *config.Config
	defaults domain.AIConfig
	store    *persistence.Persistence
	bus      *events.Bus
	agent    *agent.Agent

	l *logrus.Logger
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	e := &env{in: in, out: out, l: log.Logger(log.LOG_MAIN)}

	app := &cli.App{
		Name:    "imap-triage",
		Usage:   "AI importance triage for incoming mail",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.toml", Usage: "Path of the toml config file"},
			&cli.StringFlag{Name: "loglevel", Usage: "Overrides Loglevel of the config file"},
		},
		After: e.close,
		Commands: []*cli.Command{
			e.serveCmd(),
			e.triageCmd(),
			e.actionCmd(),
			e.importanceCmd(),
			e.vipCmd(),
			e.skillsCmd(),
			e.summaryCmd(),
			e.draftCmd(),
			e.aiConfigCmd(),
		},
	}
	// errors are reported by main
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// action opens the environment before running fn.
func (e *env) action(fn cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := e.open(c); err != nil {
			return err
		}
		return fn(c)
	}
}

func (e *env) open(c *cli.Context) error {
	conf, err := config.ReadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}
	if level := c.String("loglevel"); level != "" {
		if !log.ValidLevel(level) {
			return cli.Exit(fmt.Sprintf("unknown loglevel %q", level), 1)
		}
		log.SetLogLevel(level)
	}

	store, err := persistence.NewPersistence(conf.Database)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}

	e.conf = conf
	e.store = store
	e.defaults = domain.AIConfig{Endpoint: conf.AI.Endpoint, APIKey: conf.AI.APIKey, Model: conf.AI.Model}
	e.ctx, e.cancel = signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	e.bus = events.NewBus(events.DefaultBuffer)

	completer := ai.Throttled(
		ai.NewConfigured(ai.NewClient(conf.AI.Timeout.Duration), store, e.defaults),
		conf.Triage.MinInterval.Duration,
	)
	e.agent, err = agent.New(store, completer, e.bus, triage.NewSupervisor(e.ctx), agent.Options{
		CycleEvery: conf.Triage.SkillCycleEvery,
		Triage:     []triage.ConfigFunc{triage.MaxPerRun(conf.Triage.MaxPerRun)},
		Defaults:   e.defaults,
	})
	if err != nil {
		return err
	}

	e.l.WithFields(logrus.Fields{"database": conf.Database, "model": conf.AI.Model}).Debug("Opened")
	return nil
}

func (e *env) close(_ *cli.Context) error {
	if e.agent != nil {
		e.agent.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

func (e *env) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Watch the mailbox and serve the api until interrupted",
		Action: e.action(func(c *cli.Context) error {
			conf := e.conf
			if !conf.Server.Enabled && !conf.Imap.Enabled {
				return cli.Exit("nothing to serve, enable Server or Imap in the config", 1)
			}

			var watcher *imapconnection.Watcher
			if conf.Imap.Enabled {
				dial, err := imapconnection.Dial(conf.Imap.Host, conf.Imap.User, conf.Imap.Password)
				if err != nil {
					return err
				}
				watcher = imapconnection.NewWatcher(e.store, dial, conf.Imap.AccountID, conf.Imap.Folder, conf.Imap.Reconnect.Duration, e.agent.NewMail)
			}

			g, ctx := errgroup.WithContext(e.ctx)
			g.Go(func() error {
				e.logEvents(ctx)
				return nil
			})

			if conf.Server.Enabled {
				router := api.NewRouter(e.agent, e.bus)
				g.Go(func() error {
					return api.Serve(ctx, conf.Server.Listen, router)
				})
			}

			if watcher != nil {
				g.Go(func() error {
					return watcher.Run(ctx)
				})
				// mail stored by an earlier run may still wait for triage, this
				// is no arrival and does not count towards the skill cycle
				if err := e.agent.TriggerTriage(conf.Imap.AccountID); err != nil {
					return err
				}
			}

			e.l.WithFields(logrus.Fields{"api": conf.Server.Enabled, "imap": conf.Imap.Enabled}).Info("Serving")
			return g.Wait()
		}),
	}
}

func (e *env) logEvents(ctx context.Context) {
	sub := e.bus.Subscribe()
	defer e.bus.Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			e.l.WithFields(logrus.Fields{"event": event.Name, "payload": event.Payload}).Debug("Event")
		case <-ctx.Done():
			return
		}
	}
}

func (e *env) triageCmd() *cli.Command {
	return &cli.Command{
		Name:  "triage",
		Usage: "Classify the unclassified mail of an account and print the run statistics",
		Flags: []cli.Flag{accountFlag()},
		Action: e.action(func(c *cli.Context) error {
			stats, err := e.agent.RunTriage(e.ctx, c.String("account"))
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(stats)
		}),
	}
}

func (e *env) actionCmd() *cli.Command {
	return &cli.Command{
		Name:      "action",
		Usage:     "Record what the user did with an email",
		ArgsUsage: "<opened|replied|deleted|ignored|starred>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Email id"},
			&cli.StringFlag{Name: "sender", Aliases: []string{"s"}, Usage: "Sender address of the email"},
		},
		Action: e.action(func(c *cli.Context) error {
			action, err := domain.ParseUserAction(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			err = e.agent.RecordAction(e.ctx, c.String("email"), action, c.String("sender"))
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(map[string]string{"email_id": c.String("email"), "action": string(action)})
		}),
	}
}

func (e *env) importanceCmd() *cli.Command {
	return &cli.Command{
		Name:      "importance",
		Usage:     "Print the latest classification of emails, or of a whole account",
		ArgsUsage: "[email id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Aliases: []string{"a"}, Usage: "Print every classified email of this account"},
		},
		Action: e.action(func(c *cli.Context) error {
			var (
				records map[string]*domain.TriageRecord
				err     error
			)
			if account := c.String("account"); account != "" {
				records, err = e.agent.AccountImportance(e.ctx, account)
			} else {
				records, err = e.agent.ImportanceBatch(e.ctx, c.Args().Slice())
			}
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(records)
		}),
	}
}

func (e *env) vipCmd() *cli.Command {
	return &cli.Command{
		Name:  "vip",
		Usage: "Manage VIP senders",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List VIP senders",
				Action: e.action(func(c *cli.Context) error {
					vips, err := e.agent.ListVIPs(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(vips)
				}),
			},
			{
				Name:      "add",
				Usage:     "Mark a sender as VIP",
				ArgsUsage: "<address>",
				Action: e.action(func(c *cli.Context) error {
					err := e.agent.AddVIP(e.ctx, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]string{"added": strings.ToLower(strings.TrimSpace(c.Args().First()))})
				}),
			},
		},
	}
}

func (e *env) skillsCmd() *cli.Command {
	return &cli.Command{
		Name:  "skills",
		Usage: "Inspect and maintain learned skills",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all skills, active ones first",
				Action: e.action(func(c *cli.Context) error {
					skills, err := e.agent.ListSkills(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(skills)
				}),
			},
			{
				Name:      "toggle",
				Usage:     "Activate or deactivate a skill",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "active", Value: true, Usage: "Whether the skill should be active"},
				},
				Action: e.action(func(c *cli.Context) error {
					err := e.agent.ToggleSkill(e.ctx, c.Args().First(), c.Bool("active"))
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]any{"id": c.Args().First(), "active": c.Bool("active")})
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a skill",
				ArgsUsage: "<id>",
				Action: e.action(func(c *cli.Context) error {
					err := e.agent.DeleteSkill(e.ctx, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]string{"deleted": c.Args().First()})
				}),
			},
			{
				Name:  "generate",
				Usage: "Derive new skills from recorded behavior",
				Action: e.action(func(c *cli.Context) error {
					created, err := e.agent.GenerateSkills(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(created)
				}),
			},
			{
				Name:  "evaluate",
				Usage: "Score active skills against recorded feedback",
				Action: e.action(func(c *cli.Context) error {
					ev, err := e.agent.EvaluateSkills(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]any{"evaluation": ev, "message": ev.String()})
				}),
			},
			{
				Name:  "cycle",
				Usage: "Run a self-improvement cycle",
				Action: e.action(func(c *cli.Context) error {
					report, err := e.agent.RunCycle(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(report)
				}),
			},
		},
	}
}

func (e *env) summaryCmd() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Manage the rolling conversation summary of an account",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the summary",
				Flags: []cli.Flag{accountFlag()},
				Action: e.action(func(c *cli.Context) error {
					summary, err := e.agent.LoadSummary(e.ctx, c.String("account"))
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(summary)
				}),
			},
			{
				Name:  "set",
				Usage: "Replace the summary (reads the text from stdin)",
				Flags: []cli.Flag{
					accountFlag(),
					&cli.IntFlag{Name: "count", Usage: "Number of messages the summary covers"},
				},
				Action: e.action(func(c *cli.Context) error {
					text, err := e.readInput()
					if err != nil {
						return outputError(err)
					}
					err = e.agent.SaveSummary(e.ctx, c.String("account"), text, c.Int("count"))
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]any{"account_id": c.String("account"), "message_count": c.Int("count")})
				}),
			},
			{
				Name:  "compact",
				Usage: "Fold new messages into the summary (reads one message per line from stdin)",
				Flags: []cli.Flag{accountFlag()},
				Action: e.action(func(c *cli.Context) error {
					text, err := e.readInput()
					if err != nil {
						return outputError(err)
					}
					messages := []string{}
					for _, line := range strings.Split(text, "\n") {
						if line = strings.TrimSpace(line); line != "" {
							messages = append(messages, line)
						}
					}
					summary, err := e.agent.CompactSummary(e.ctx, c.String("account"), messages)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(summary)
				}),
			},
		},
	}
}

func (e *env) draftCmd() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Draft a reply (reads the original body from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email id"},
			&cli.StringFlag{Name: "sender", Usage: "Sender name"},
			&cli.StringFlag{Name: "sender-email", Usage: "Sender address"},
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Subject of the original mail"},
		},
		Action: e.action(func(c *cli.Context) error {
			body, err := e.readInput()
			if err != nil {
				return outputError(err)
			}
			req := drafting.DraftRequest{
				EmailID:     c.String("email"),
				Sender:      c.String("sender"),
				SenderEmail: c.String("sender-email"),
				Subject:     c.String("subject"),
				Body:        body,
			}
			draft, err := e.agent.Draft(e.ctx, req)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(map[string]string{"to": req.SenderEmail, "subject": "Re: " + req.Subject, "body": draft})
		}),
	}
}

func (e *env) aiConfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "ai-config",
		Usage: "Show or change the completion service settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective settings",
				Action: e.action(func(c *cli.Context) error {
					cfg, err := e.agent.LoadAIConfig(e.ctx)
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]any{"endpoint": cfg.Endpoint, "model": cfg.Model, "api_key_set": cfg.APIKey != ""})
				}),
			},
			{
				Name:  "set",
				Usage: "Save settings, empty values fall back to the config file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "endpoint", Usage: "Chat completions url"},
					&cli.StringFlag{Name: "api-key", Usage: "Bearer token"},
					&cli.StringFlag{Name: "model", Usage: "Model name"},
				},
				Action: e.action(func(c *cli.Context) error {
					err := e.agent.SaveAIConfig(e.ctx, domain.AIConfig{
						Endpoint: c.String("endpoint"),
						APIKey:   c.String("api-key"),
						Model:    c.String("model"),
					})
					if err != nil {
						return outputError(err)
					}
					return e.outputJSON(map[string]bool{"saved": true})
				}),
			},
		},
	}
}

func accountFlag() cli.Flag {
	return &cli.StringFlag{Name: "account", Aliases: []string{"a"}, Required: true, Usage: "Account id"}
}

func (e *env) outputJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}

// readInput reads piped input, an interactive terminal counts as empty.
func (e *env) readInput() (string, error) {
	if f, ok := e.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", nil
		}
	}
	data, err := io.ReadAll(e.in)
	if err != nil {
		return "", fmt.Errorf("could not read input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
