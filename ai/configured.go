// SPDX-License-Identifier: GPL-3.0-or-later
package ai

import (
	"context"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

type ConfigLoader interface {
	LoadAIConfig(ctx context.Context) (*domain.AIConfig, error)
}

// Configured fills endpoint, key and model of each request from the saved
// AI config, read again on every call. Fields the request already carries
// win, fields nobody saved fall back to the defaults.
type Configured struct {
	next     domain.Completer
	loader   ConfigLoader
	defaults domain.AIConfig
	l        *logrus.Logger
}

func NewConfigured(next domain.Completer, loader ConfigLoader, defaults domain.AIConfig) *Configured {
	return &Configured{
		next:     next,
		loader:   loader,
		defaults: defaults,
		l:        log.Logger(log.LOG_AI),
	}
}

func (c *Configured) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	saved, err := c.loader.LoadAIConfig(ctx)
	if err != nil {
		c.l.WithField("error", err).Warn("Could not load ai config, using defaults")
		saved = &domain.AIConfig{}
	}

	req.Endpoint = firstNonEmpty(req.Endpoint, saved.Endpoint, c.defaults.Endpoint)
	req.APIKey = firstNonEmpty(req.APIKey, saved.APIKey, c.defaults.APIKey)
	req.Model = firstNonEmpty(req.Model, saved.Model, c.defaults.Model)

	return c.next.Complete(ctx, req)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
