// SPDX-License-Identifier: GPL-3.0-or-later
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Throttle spaces the start of completion calls at least interval apart.
// Share one instance between all callers to get a process wide limit.
// Callers wait for their turn, they are never rejected.
type Throttle struct {
	next    domain.Completer
	limiter *rate.Limiter
	l       *logrus.Logger
}

func Throttled(next domain.Completer, interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		l:       log.Logger(log.LOG_AI),
	}
}

func (t *Throttle) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if t.limiter.Tokens() < 1 {
		t.l.Debug("Rate limit, waiting before completion")
	}
	err := t.limiter.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("could not wait for completion slot: %w", err)
	}

	return t.next.Complete(ctx, req)
}
