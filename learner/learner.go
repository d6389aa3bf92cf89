// SPDX-License-Identifier: GPL-3.0-or-later
package learner

import (
	"context"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

const (
	VIPContextLimit     = 20
	SkillContextLimit   = 10
	SkillContextMinimum = 0.4
)

// Learner turns user actions into behaviour records and VIP senders and
// supplies the learned context to the classifier.
type Learner struct {
	persistence domain.Persistence
	l           *logrus.Logger
}

func NewLearner(persistence domain.Persistence) *Learner {
	return &Learner{
		persistence: persistence,
		l:           log.Logger(log.LOG_LEARNER),
	}
}

// RecordAction logs what the user did with an email and promotes the sender
// to VIP on replies and stars. Only invalid input is reported, store
// failures are logged.
func (le *Learner) RecordAction(ctx context.Context, emailID string, action domain.UserAction, senderEmail string) error {
	if strings.TrimSpace(emailID) == "" {
		return fmt.Errorf("%w: email id must not be empty", domain.ErrInvalidInput)
	}
	action, err := domain.ParseUserAction(string(action))
	if err != nil {
		return err
	}
	senderEmail = normalizeAddress(senderEmail)

	logger := le.l.WithFields(logrus.Fields{"email": emailID, "action": action, "sender": senderEmail})

	err = le.persistence.SaveTriageRecord(ctx, domain.TriageRecord{
		EmailID:     emailID,
		UserAction:  &action,
		SenderEmail: senderEmail,
	})
	if err != nil {
		logger.WithField("error", err).Warn("Could not record user action")
	} else {
		logger.Debug("Recorded user action")
	}

	if action.PromotesSender() && senderEmail != "" {
		inserted, err := le.persistence.AddVIP(ctx, domain.VIPSender{
			SenderEmail: senderEmail,
			Reason:      domain.VIPAutoLearned,
		})
		if err != nil {
			logger.WithField("error", err).Warn("Could not promote sender to vip")
		} else if inserted {
			logger.Info("Promoted sender to vip")
		}
	}

	return nil
}

// AddVIP marks a sender as VIP on user request. Adding a known VIP again is
// not an error.
func (le *Learner) AddVIP(ctx context.Context, senderEmail string) error {
	senderEmail = normalizeAddress(senderEmail)
	if senderEmail == "" || !strings.Contains(senderEmail, "@") {
		return fmt.Errorf("%w: %q is not an email address", domain.ErrInvalidInput, senderEmail)
	}

	_, err := le.persistence.AddVIP(ctx, domain.VIPSender{
		SenderEmail: senderEmail,
		Reason:      domain.VIPManual,
	})
	if err != nil {
		return fmt.Errorf("could not add vip sender: %w", err)
	}
	return nil
}

func (le *Learner) ListVIPs(ctx context.Context) ([]*domain.VIPSender, error) {
	vips, err := le.persistence.ListVIPs(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("could not list vip senders: %w", err)
	}
	return vips, nil
}

// VIPContext lists up to 20 VIP addresses, one "- address" line each.
func (le *Learner) VIPContext(ctx context.Context) string {
	vips, err := le.persistence.ListVIPs(ctx, VIPContextLimit)
	if err != nil {
		le.l.WithField("error", err).Warn("Could not load vip senders")
		return ""
	}

	lines := make([]string, 0, len(vips))
	for _, vip := range vips {
		lines = append(lines, "- "+vip.SenderEmail)
	}
	return strings.Join(lines, "\n")
}

// SkillsContext lists the most confident active skills.
func (le *Learner) SkillsContext(ctx context.Context) string {
	skills, err := le.persistence.ContextSkills(ctx, SkillContextMinimum, SkillContextLimit)
	if err != nil {
		le.l.WithField("error", err).Warn("Could not load skills")
		return ""
	}

	lines := make([]string, 0, len(skills))
	for _, s := range skills {
		lines = append(lines, fmt.Sprintf("- %s (confidence: %.0f%%): %s", s.Description, s.Confidence*100, string(s.Rule)))
	}
	return strings.Join(lines, "\n")
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
