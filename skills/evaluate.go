// SPDX-License-Identifier: GPL-3.0-or-later
package skills

import (
	"context"
	"fmt"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/sirupsen/logrus"
)

type judgement int

const (
	neutral = judgement(iota)
	correct
	incorrect
)

// judge compares a prediction with what the user later did.
func judge(importance domain.Importance, action domain.UserAction) judgement {
	switch importance {
	case domain.High:
		switch action {
		case domain.Replied, domain.Opened, domain.Starred:
			return correct
		case domain.Ignored, domain.Deleted:
			return incorrect
		}
	case domain.Low:
		switch action {
		case domain.Ignored, domain.Deleted:
			return correct
		case domain.Replied, domain.Starred:
			return incorrect
		}
	case domain.Medium:
		if action == domain.Opened {
			return correct
		}
	}
	return neutral
}

type Evaluation struct {
	Pairs       int     `json:"pairs"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	Accuracy    float64 `json:"accuracy"`
	Delta       float64 `json:"delta"`
	Deactivated int64   `json:"deactivated"`
}

func (ev *Evaluation) String() string {
	return fmt.Sprintf(
		"Evaluation: %d correct, %d incorrect. Accuracy: %.0f%%. Skills adjusted.",
		ev.Correct, ev.Incorrect, ev.Accuracy*100,
	)
}

// Evaluate grades recent predictions against later user actions and moves
// the confidence of all active skills up or down by one step.
func (e *Engine) Evaluate(ctx context.Context) (*Evaluation, error) {
	pairs, err := e.persistence.FeedbackPairs(ctx, FeedbackLimit)
	if err != nil {
		return nil, fmt.Errorf("could not load feedback: %w", err)
	}

	ev := &Evaluation{Pairs: len(pairs)}
	for _, p := range pairs {
		// neutral outcomes count in favour of the prediction
		if judge(p.Importance, p.Action) == incorrect {
			ev.Incorrect++
		} else {
			ev.Correct++
		}
	}

	ev.Accuracy = 0.5
	if ev.Correct+ev.Incorrect > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Correct+ev.Incorrect)
	}

	ev.Delta = -ConfidenceStep
	if ev.Accuracy > AccuracyThreshold {
		ev.Delta = ConfidenceStep
	}

	ev.Deactivated, err = e.persistence.ApplyEvaluation(ctx, domain.EvaluationUpdate{
		Delta:   ev.Delta,
		Applied: ev.Pairs,
		Correct: ev.Correct,
	})
	if err != nil {
		return nil, fmt.Errorf("could not apply evaluation: %w", err)
	}

	e.l.WithFields(logrus.Fields{
		"pairs":       ev.Pairs,
		"correct":     ev.Correct,
		"incorrect":   ev.Incorrect,
		"accuracy":    ev.Accuracy,
		"delta":       ev.Delta,
		"deactivated": ev.Deactivated,
	}).Info("Evaluated skills")

	return ev, nil
}

type CycleReport struct {
	Skipped    bool        `json:"skipped"`
	Reason     string      `json:"reason,omitempty"`
	Actions    int         `json:"actions"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Created    []string    `json:"created,omitempty"`
}

// RunCycle evaluates existing skills and then looks for new ones. It does
// nothing until enough user actions were recorded. Cycles never overlap each
// other but may run alongside triage runs.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	if !e.cycle.TryLock() {
		e.l.Info("Self-improvement cycle already running, skipping")
		return &CycleReport{Skipped: true, Reason: "already running"}, nil
	}
	defer e.cycle.Unlock()

	actions, err := e.persistence.CountActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not count actions: %w", err)
	}

	report := &CycleReport{Actions: actions}
	if actions < MinActionsForCycle {
		e.l.WithFields(logrus.Fields{"actions": actions, "needed": MinActionsForCycle}).Info("Not enough data for self-improvement")
		report.Skipped = true
		report.Reason = NoDataMessage
		return report, nil
	}

	e.l.Info("Starting self-improvement cycle")

	report.Evaluation, err = e.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	report.Created, err = e.Generate(ctx)
	if err != nil {
		return report, err
	}

	e.l.Info("Self-improvement cycle complete")
	return report, nil
}
