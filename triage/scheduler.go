// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/drafting"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"

	"github.com/sirupsen/logrus"
)

const (
	ReasonRunning = "already running"
	ReasonStopped = "stopped"
)

type Classifier interface {
	Classify(ctx context.Context, email *domain.Email) domain.Verdict
}

type Drafter interface {
	Propose(ctx context.Context, req drafting.DraftRequest)
}

type RunStats struct {
	AccountID  string    `json:"account_id"`
	Skipped    bool      `json:"skipped"`
	Reason     string    `json:"reason,omitempty"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Important  int       `json:"important"`
	Failure    string    `json:"failure,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type Status struct {
	Running bool      `json:"running"`
	Stopped bool      `json:"stopped"`
	LastRun *RunStats `json:"last_run,omitempty"`
}

type state struct {
	running bool
	stopped bool
	lastRun *RunStats
}

// Scheduler drains the backlog of unclassified inbox mail. At most one run
// is active at any time, concurrent calls return without doing anything.
type Scheduler struct {
	persistence domain.Persistence
	classifier  Classifier
	drafter     Drafter
	events      domain.EventSink
	supervisor  *Supervisor

	configuration *configuration

	mu    sync.Mutex
	state state

	l *logrus.Logger
}

func NewScheduler(persistence domain.Persistence, classifier Classifier, drafter Drafter, events domain.EventSink, supervisor *Supervisor, configFunc ...ConfigFunc) (*Scheduler, error) {
	config := defaultConfiguration()
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return &Scheduler{
		persistence:   persistence,
		classifier:    classifier,
		drafter:       drafter,
		events:        events,
		supervisor:    supervisor,
		configuration: config,
		l:             log.Logger(log.LOG_TRIAGE),
	}, nil
}

func (s *Scheduler) acquire() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.stopped {
		return ReasonStopped, false
	}
	if s.state.running {
		return ReasonRunning, false
	}
	s.state.running = true
	return "", true
}

func (s *Scheduler) release(stats *RunStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.running = false
	s.state.lastRun = stats
}

// Stop prevents future runs. A run in progress finishes normally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.stopped = true
	s.l.Info("Scheduler stopped")
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.state.running, Stopped: s.state.stopped}
	if s.state.lastRun != nil {
		last := *s.state.lastRun
		status.LastRun = &last
	}
	return status
}

// Run classifies up to the configured number of unclassified inbox mails of
// one account, newest first. The run ends at the first failed classification
// and leaves that mail for the next run.
func (s *Scheduler) Run(ctx context.Context, accountID string) (RunStats, error) {
	reason, ok := s.acquire()
	if !ok {
		s.l.WithFields(logrus.Fields{"account": accountID, "reason": reason}).Info("Skipping triage run")
		return RunStats{AccountID: accountID, Skipped: true, Reason: reason}, nil
	}

	stats := &RunStats{AccountID: accountID, StartedAt: time.Now()}
	defer func() {
		stats.FinishedAt = time.Now()
		s.release(stats)
	}()

	err := s.run(ctx, stats)
	return *stats, err
}

func (s *Scheduler) run(ctx context.Context, stats *RunStats) error {
	logger := s.l.WithField("account", stats.AccountID)

	purged, err := s.persistence.PurgeTransientTriage(ctx)
	if err != nil {
		return fmt.Errorf("could not purge failed classifications: %w", err)
	}
	if purged > 0 {
		logger.WithField("purged", purged).Debug("Purged failed classifications")
	}

	total, err := s.persistence.CountUnclassified(ctx, stats.AccountID)
	if err != nil {
		return fmt.Errorf("could not count unclassified mail: %w", err)
	}
	stats.Total = total
	if total == 0 {
		logger.Info("No new mail to classify")
		return nil
	}

	logger.WithField("unclassified", total).Info("Starting triage")
	s.events.Emit(domain.EventTriageProgress, domain.TriageProgress{Total: total, Status: domain.ProgressStarted})
	defer func() {
		s.events.Emit(domain.EventTriageProgress, domain.TriageProgress{Total: total, Processed: stats.Processed, Status: domain.ProgressDone})
		logger.WithFields(logrus.Fields{"processed": stats.Processed, "important": stats.Important}).Info("Triage done")
	}()

	batch := total
	if batch > s.configuration.MaxPerRun {
		batch = s.configuration.MaxPerRun
	}

	for stats.Processed < s.configuration.MaxPerRun {
		email, err := s.persistence.NextUnclassified(ctx, stats.AccountID)
		if err != nil {
			return fmt.Errorf("could not load next unclassified mail: %w", err)
		}
		if email == nil {
			break
		}

		mailLogger := logger.WithFields(logrus.Fields{"email": email.ID, "subject": mail.ShortSubject(email.Subject)})
		mailLogger.WithFields(logrus.Fields{"position": stats.Processed + 1, "of": batch}).Debug("Classifying")
		s.events.Emit(domain.EventTriageProgress, domain.TriageProgress{
			Total:          batch,
			Processed:      stats.Processed,
			CurrentSubject: email.Subject,
			Status:         domain.ProgressClassifying,
		})

		verdict := s.classifier.Classify(ctx, email)
		if verdict.Failed() {
			stats.Failure = verdict.Outcome.String()
			mailLogger.WithField("outcome", verdict.Outcome).Warn("Classification failed, retrying on next run")
			return nil
		}

		result := verdict.Result
		importance := result.Importance
		err = s.persistence.SaveTriageRecord(ctx, domain.TriageRecord{
			EmailID:     email.ID,
			Importance:  &importance,
			Reason:      result.Reason,
			SenderEmail: email.SenderEmail,
		})
		if err != nil {
			return fmt.Errorf("could not save classification for %s: %w", email.ID, err)
		}

		stats.Processed++
		mailLogger.WithFields(logrus.Fields{"importance": result.Importance, "notify": result.ShouldNotify, "reason": result.Reason}).Info("Classified mail")
		s.events.Emit(domain.EventEmailClassified, domain.EmailClassified{
			EmailID:    email.ID,
			Importance: result.Importance,
			Reason:     result.Reason,
		})

		if result.Importance == domain.High && result.ShouldNotify {
			stats.Important++
			s.events.Emit(domain.EventImportantMail, domain.ImportantMail{
				AccountID:  stats.AccountID,
				EmailID:    email.ID,
				Sender:     email.Sender,
				Subject:    email.Subject,
				Importance: result.Importance,
			})
			s.spawnDraft(email)
		}
	}

	if stats.Processed >= s.configuration.MaxPerRun {
		logger.WithField("max", s.configuration.MaxPerRun).Info("Reached maximum per run, remaining mail waits for the next trigger")
	}
	return nil
}

func (s *Scheduler) spawnDraft(email *domain.Email) {
	if !s.configuration.Drafts || s.drafter == nil {
		return
	}

	body := email.Body
	if body == "" {
		body = email.Snippet
	}
	req := drafting.DraftRequest{
		EmailID:     email.ID,
		Sender:      email.Sender,
		SenderEmail: email.SenderEmail,
		Subject:     email.Subject,
		Body:        body,
	}
	s.supervisor.Go("draft "+email.ID, func(ctx context.Context) error {
		s.drafter.Propose(ctx, req)
		return nil
	})
}
