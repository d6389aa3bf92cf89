// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"

	"github.com/sirupsen/logrus"
)

// ContextProvider supplies the learned context injected into every prompt.
// Both fragments may be empty.
type ContextProvider interface {
	VIPContext(ctx context.Context) string
	SkillsContext(ctx context.Context) string
}

type Classifier struct {
	completer domain.Completer
	context   ContextProvider
	l         *logrus.Logger
}

func NewClassifier(completer domain.Completer, provider ContextProvider) *Classifier {
	return &Classifier{
		completer: completer,
		context:   provider,
		l:         log.Logger(log.LOG_CLASSIFIER),
	}
}

// Classify never fails: problems with the completion service or its answer
// are reported as a failed verdict.
func (c *Classifier) Classify(ctx context.Context, email *domain.Email) domain.Verdict {
	logger := c.l.WithFields(logrus.Fields{"email": email.ID, "subject": mail.ShortSubject(email.Subject)})

	prompt := buildPrompt(email, c.context.VIPContext(ctx), c.context.SkillsContext(ctx))
	text, err := c.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		logger.WithField("error", err).Warn("Completion service unavailable")
		return failed(email.ID, domain.Unavailable, domain.ReasonUnavailable)
	}

	result, err := ParseVerdict(email.ID, text)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err, "response": Clip(text, 200)}).Warn("Could not parse verdict")
		return failed(email.ID, domain.Malformed, domain.ReasonUnparseable)
	}

	logger.WithFields(logrus.Fields{"importance": result.Importance, "notify": result.ShouldNotify}).Debug("Classified")
	return domain.Verdict{Result: result, Outcome: domain.Classified}
}

func failed(emailID string, outcome domain.Outcome, reason string) domain.Verdict {
	return domain.Verdict{
		Result: domain.TriageResult{
			EmailID:    emailID,
			Importance: domain.Low,
			Reason:     reason,
		},
		Outcome: outcome,
	}
}
