// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CrawX/go-imap-triage/log"

	"github.com/BurntSushi/toml"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("could not parse duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

type Imap struct {
	Enabled   bool
	Host      string
	User      string
	Password  string
	AccountID string
	Folder    string
	Reconnect Duration
}

// AI holds the completion service settings used until the user saves others.
type AI struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  Duration
}

type Triage struct {
	MaxPerRun       int
	MinInterval     Duration
	SkillCycleEvery int
}

type Server struct {
	Enabled bool
	Listen  string
}

type Config struct {
	Database string
	Loglevel *string

	Imap   Imap
	AI     AI
	Triage Triage
	Server Server
}

const (
	DefaultEndpoint = "http://127.0.0.1:8045/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"
)

func Default() *Config {
	return &Config{
		Database: "triage.db",
		Imap: Imap{
			Folder:    "INBOX",
			Reconnect: Duration{30 * time.Second},
		},
		AI: AI{
			Endpoint: DefaultEndpoint,
			Model:    DefaultModel,
			Timeout:  Duration{60 * time.Second},
		},
		Triage: Triage{
			MaxPerRun:       10,
			MinInterval:     Duration{5 * time.Second},
			SkillCycleEvery: 10,
		},
		Server: Server{
			Listen: "127.0.0.1:8484",
		},
	}
}

func ReadConfig(filename string) (*Config, error) {
	config := Default()

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.Database, "Database name must not be empty, set to a filename for the sqlite database"); err != nil {
		return err
	}

	if c.Loglevel != nil && !log.ValidLevel(*c.Loglevel) {
		return fmt.Errorf("Loglevel %q is unknown, use one of trace, debug, info, warn, error", *c.Loglevel)
	}

	if c.Triage.MaxPerRun < 1 {
		return fmt.Errorf("Triage.MaxPerRun must be at least 1, got %d", c.Triage.MaxPerRun)
	}
	if c.Triage.MinInterval.Duration < 0 {
		return fmt.Errorf("Triage.MinInterval must not be negative")
	}
	if c.Triage.SkillCycleEvery < 1 {
		return fmt.Errorf("Triage.SkillCycleEvery must be at least 1, got %d", c.Triage.SkillCycleEvery)
	}

	if c.Imap.Enabled {
		if err := validateNonEmptyStringField(c.Imap.Host, "Imap.Host must not be empty, set to host:port of the imap server"); err != nil {
			return err
		}
		if err := validateNonEmptyStringField(c.Imap.User, "Imap.User must not be empty, set to username on the imap server"); err != nil {
			return err
		}
		if err := validateNonEmptyStringField(c.Imap.Password, "Imap.Password must not be empty, set to password of User on the imap server"); err != nil {
			return err
		}
		if err := validateNonEmptyStringField(c.Imap.AccountID, "Imap.AccountID must not be empty, set to the account the watched mailbox belongs to"); err != nil {
			return err
		}
	}

	if c.Server.Enabled {
		if err := validateNonEmptyStringField(c.Server.Listen, "Server.Listen must not be empty, set to host:port to serve the api on"); err != nil {
			return err
		}
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
