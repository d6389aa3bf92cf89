// SPDX-License-Identifier: GPL-3.0-or-later
package agent

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/CrawX/go-imap-triage/classifier"
	"github.com/CrawX/go-imap-triage/conversation"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/drafting"
	"github.com/CrawX/go-imap-triage/learner"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/skills"
	"github.com/CrawX/go-imap-triage/triage"

	"github.com/sirupsen/logrus"
)

const DefaultCycleEvery = 10

type Options struct {
	// CycleEvery runs the self-improvement cycle on every n-th arrival.
	CycleEvery int
	Triage     []triage.ConfigFunc
	// Defaults are reported for AI settings the user never saved.
	Defaults domain.AIConfig
}

// Agent wires the triage components together and is the single entry point
// for mail arrivals and user requests.
type Agent struct {
	persistence domain.Persistence
	supervisor  *triage.Supervisor

	learner   *learner.Learner
	skills    *skills.Engine
	drafter   *drafting.Drafter
	compactor *conversation.Compactor
	scheduler *triage.Scheduler

	cycleEvery int
	defaults   domain.AIConfig

	mu       sync.Mutex
	arrivals int

	l *logrus.Logger
}

// New builds an agent. completer should be shared process wide so its
// throttle covers every caller.
func New(persistence domain.Persistence, completer domain.Completer, events domain.EventSink, supervisor *triage.Supervisor, opts Options) (*Agent, error) {
	if opts.CycleEvery <= 0 {
		opts.CycleEvery = DefaultCycleEvery
	}

	le := learner.NewLearner(persistence)
	drafter := drafting.NewDrafter(completer, events)
	scheduler, err := triage.NewScheduler(
		persistence,
		classifier.NewClassifier(completer, le),
		drafter,
		events,
		supervisor,
		opts.Triage...,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}

	return &Agent{
		persistence: persistence,
		supervisor:  supervisor,
		learner:     le,
		skills:      skills.NewEngine(persistence, completer),
		drafter:     drafter,
		compactor:   conversation.NewCompactor(persistence, completer),
		scheduler:   scheduler,
		cycleEvery:  opts.CycleEvery,
		defaults:    opts.Defaults,
		l:           log.Logger(log.LOG_MAIN),
	}, nil
}

// NewMail reacts to mail arriving for an account. It starts a triage run in
// the background and every few arrivals a self-improvement cycle as well.
func (a *Agent) NewMail(accountID string) {
	a.mu.Lock()
	a.arrivals++
	arrivals := a.arrivals
	a.mu.Unlock()

	a.l.WithFields(logrus.Fields{"account": accountID, "arrivals": arrivals}).Debug("New mail")
	a.spawnTriage(accountID)

	if arrivals%a.cycleEvery == 0 {
		a.supervisor.Go("self-improvement", func(ctx context.Context) error {
			_, err := a.skills.RunCycle(ctx)
			return err
		})
	}
}

func (a *Agent) spawnTriage(accountID string) {
	a.supervisor.Go("triage "+accountID, func(ctx context.Context) error {
		_, err := a.scheduler.Run(ctx, accountID)
		return err
	})
}

// TriggerTriage starts a triage run without waiting for it.
func (a *Agent) TriggerTriage(accountID string) error {
	if err := requireAccount(accountID); err != nil {
		return err
	}
	a.spawnTriage(accountID)
	return nil
}

func (a *Agent) RunTriage(ctx context.Context, accountID string) (triage.RunStats, error) {
	if err := requireAccount(accountID); err != nil {
		return triage.RunStats{}, err
	}
	return a.scheduler.Run(ctx, accountID)
}

func (a *Agent) TriageStatus() triage.Status {
	return a.scheduler.Status()
}

// Stop refuses further triage runs and waits for background work to finish.
func (a *Agent) Stop() {
	a.scheduler.Stop()
	a.supervisor.Wait()
}

func (a *Agent) RecordAction(ctx context.Context, emailID string, action domain.UserAction, senderEmail string) error {
	return a.learner.RecordAction(ctx, emailID, action, senderEmail)
}

// Importance returns the latest classification of one email.
func (a *Agent) Importance(ctx context.Context, emailID string) (*domain.TriageRecord, error) {
	records, err := a.ImportanceBatch(ctx, []string{emailID})
	if err != nil {
		return nil, err
	}
	record, ok := records[emailID]
	if !ok {
		return nil, fmt.Errorf("classification for %s: %w", emailID, domain.ErrNotFound)
	}
	return record, nil
}

// ImportanceBatch omits emails that were never classified.
func (a *Agent) ImportanceBatch(ctx context.Context, emailIDs []string) (map[string]*domain.TriageRecord, error) {
	records, err := a.persistence.LatestImportance(ctx, emailIDs)
	if err != nil {
		return nil, fmt.Errorf("could not load importance: %w", err)
	}
	return records, nil
}

func (a *Agent) AccountImportance(ctx context.Context, accountID string) (map[string]*domain.TriageRecord, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	records, err := a.persistence.AccountImportance(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("could not load importance: %w", err)
	}
	return records, nil
}

func (a *Agent) ListVIPs(ctx context.Context) ([]*domain.VIPSender, error) {
	return a.learner.ListVIPs(ctx)
}

func (a *Agent) AddVIP(ctx context.Context, senderEmail string) error {
	return a.learner.AddVIP(ctx, senderEmail)
}

func (a *Agent) SaveSummary(ctx context.Context, accountID, summary string, messageCount int) error {
	return a.compactor.Save(ctx, accountID, summary, messageCount)
}

func (a *Agent) LoadSummary(ctx context.Context, accountID string) (*domain.ConversationSummary, error) {
	return a.compactor.Load(ctx, accountID)
}

func (a *Agent) CompactSummary(ctx context.Context, accountID string, messages []string) (*domain.ConversationSummary, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	return a.compactor.Compact(ctx, accountID, messages)
}

func (a *Agent) ListSkills(ctx context.Context) ([]*domain.Skill, error) {
	return a.skills.List(ctx)
}

func (a *Agent) ToggleSkill(ctx context.Context, id string, active bool) error {
	return a.skills.Toggle(ctx, id, active)
}

func (a *Agent) DeleteSkill(ctx context.Context, id string) error {
	return a.skills.Delete(ctx, id)
}

func (a *Agent) GenerateSkills(ctx context.Context) ([]string, error) {
	return a.skills.Generate(ctx)
}

func (a *Agent) EvaluateSkills(ctx context.Context) (*skills.Evaluation, error) {
	return a.skills.Evaluate(ctx)
}

func (a *Agent) RunCycle(ctx context.Context) (*skills.CycleReport, error) {
	return a.skills.RunCycle(ctx)
}

func (a *Agent) Draft(ctx context.Context, req drafting.DraftRequest) (string, error) {
	return a.drafter.Draft(ctx, req)
}

func (a *Agent) SaveAIConfig(ctx context.Context, cfg domain.AIConfig) error {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: endpoint %q is not a http(s) url", domain.ErrInvalidInput, cfg.Endpoint)
		}
	}

	err := a.persistence.SaveAIConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not save ai config: %w", err)
	}
	a.l.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "model": cfg.Model}).Info("Saved ai config")
	return nil
}

// LoadAIConfig returns the effective settings, saved values taking
// precedence over the defaults.
func (a *Agent) LoadAIConfig(ctx context.Context) (*domain.AIConfig, error) {
	saved, err := a.persistence.LoadAIConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load ai config: %w", err)
	}

	effective := a.defaults
	if saved.Endpoint != "" {
		effective.Endpoint = saved.Endpoint
	}
	if saved.APIKey != "" {
		effective.APIKey = saved.APIKey
	}
	if saved.Model != "" {
		effective.Model = saved.Model
	}
	return &effective, nil
}

func requireAccount(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is empty", domain.ErrInvalidInput)
	}
	return nil
}
