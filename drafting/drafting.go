// SPDX-License-Identifier: GPL-3.0-or-later
package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/classifier"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"

	"github.com/sirupsen/logrus"
)

const BodyLimit = 500

const systemPrompt = "You are a professional email assistant. Only produce the text of the reply."

const promptTemplate = `Write a short, professional reply to this email:

From: %s
Subject: %s
Content: %s

Instructions:
- Reply in the same language as the email
- Be professional but friendly
- 3-4 sentences at most
- Only the text of the reply, no greeting and no signature`

type DraftRequest struct {
	EmailID     string `json:"email_id"`
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type Drafter struct {
	completer domain.Completer
	events    domain.EventSink
	l         *logrus.Logger
}

func NewDrafter(completer domain.Completer, events domain.EventSink) *Drafter {
	return &Drafter{
		completer: completer,
		events:    events,
		l:         log.Logger(log.LOG_DRAFTING),
	}
}

// Draft returns a suggested reply body.
func (d *Drafter) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Body) == "" {
		return "", fmt.Errorf("%w: nothing to reply to", domain.ErrInvalidInput)
	}

	text, err := d.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:       fmt.Sprintf(promptTemplate, req.Sender, req.Subject, classifier.Clip(req.Body, BodyLimit)),
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("could not draft reply: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// Propose drafts a reply in the background path. A draft is announced as an
// event; failures are only logged.
func (d *Drafter) Propose(ctx context.Context, req DraftRequest) {
	logger := d.l.WithFields(logrus.Fields{"email": req.EmailID, "subject": mail.ShortSubject(req.Subject)})
	logger.Info("Generating proactive draft")

	body, err := d.Draft(ctx, req)
	if err != nil {
		logger.WithField("error", err).Warn("Could not generate draft")
		return
	}

	d.events.Emit(domain.EventProactiveDraft, domain.ProactiveDraft{
		EmailID: req.EmailID,
		To:      req.SenderEmail,
		Subject: "Re: " + req.Subject,
		Body:    body,
		Sender:  req.Sender,
	})
	logger.Info("Draft generated")
}
