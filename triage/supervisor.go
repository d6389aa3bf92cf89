// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Supervisor owns background tasks. Failures and panics are logged and never
// reach the code that started the task. Wait blocks until every task started
// so far has returned.
type Supervisor struct {
	ctx   context.Context
	group *errgroup.Group
	l     *logrus.Logger
}

// NewSupervisor creates a supervisor whose tasks run with ctx. The number of
// tasks is not bounded: tasks start further tasks, so Go must never block.
func NewSupervisor(ctx context.Context) *Supervisor {
	return &Supervisor{
		ctx:   ctx,
		group: &errgroup.Group{},
		l:     log.Logger(log.LOG_TRIAGE),
	}
}

func (s *Supervisor) Go(name string, task func(ctx context.Context) error) {
	s.group.Go(func() (err error) {
		start := time.Now()
		logger := s.l.WithField("task", name)

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				logger.WithFields(logrus.Fields{"error": err, "duration": time.Since(start)}).Warn("Background task failed")
			} else {
				logger.WithField("duration", time.Since(start)).Debug("Background task finished")
			}
			// the group must never carry an error, it would be reported by every later Wait
			err = nil
		}()

		logger.Debug("Background task started")
		return task(s.ctx)
	})
}

func (s *Supervisor) Wait() {
	_ = s.group.Wait()
}
