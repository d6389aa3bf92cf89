// SPDX-License-Identifier: GPL-3.0-or-later
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

const systemPrompt = "You maintain a running summary of a conversation between a user and their email assistant. Respond with the summary text only."

const compactTemplate = `Previous summary:
%s

New messages:
%s

Write an updated summary that keeps every fact, decision and open task from both.
Keep it under 200 words.`

// Compactor keeps a rolling summary per account so chat history does not
// need to be replayed in full.
type Compactor struct {
	persistence domain.Persistence
	completer   domain.Completer
	l           *logrus.Logger
}

func NewCompactor(persistence domain.Persistence, completer domain.Completer) *Compactor {
	return &Compactor{
		persistence: persistence,
		completer:   completer,
		l:           log.Logger(log.LOG_CONVERSATION),
	}
}

func (c *Compactor) Save(ctx context.Context, accountID, summary string, messageCount int) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is empty", domain.ErrInvalidInput)
	}
	if messageCount < 0 {
		return fmt.Errorf("%w: negative message count %d", domain.ErrInvalidInput, messageCount)
	}

	err := c.persistence.SaveSummary(ctx, domain.ConversationSummary{
		AccountID:    accountID,
		Summary:      summary,
		MessageCount: messageCount,
	})
	if err != nil {
		return fmt.Errorf("could not save summary: %w", err)
	}
	return nil
}

// Load returns nil when the account has no summary yet.
func (c *Compactor) Load(ctx context.Context, accountID string) (*domain.ConversationSummary, error) {
	summary, err := c.persistence.LoadSummary(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("could not load summary: %w", err)
	}
	return summary, nil
}

// Compact folds messages into the stored summary.
func (c *Compactor) Compact(ctx context.Context, accountID string, messages []string) (*domain.ConversationSummary, error) {
	previous, err := c.Load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		if previous == nil {
			return nil, fmt.Errorf("%w: no messages to compact", domain.ErrInvalidInput)
		}
		return previous, nil
	}

	previousText, count := "(none)", 0
	if previous != nil {
		previousText, count = previous.Summary, previous.MessageCount
	}

	text, err := c.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:       fmt.Sprintf(compactTemplate, previousText, formatMessages(messages)),
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("could not compact conversation: %w", err)
	}

	summary := domain.ConversationSummary{
		AccountID:    accountID,
		Summary:      strings.TrimSpace(text),
		MessageCount: count + len(messages),
	}
	err = c.Save(ctx, accountID, summary.Summary, summary.MessageCount)
	if err != nil {
		return nil, err
	}

	c.l.WithFields(logrus.Fields{"account": accountID, "messages": summary.MessageCount}).Info("Compacted conversation")
	return c.Load(ctx, accountID)
}

func formatMessages(messages []string) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = "- " + strings.TrimSpace(m)
	}
	return strings.Join(lines, "\n")
}
