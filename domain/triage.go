// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"fmt"
	"strings"
	"time"
)

type Importance string

const (
	High   = Importance("high")
	Medium = Importance("medium")
	Low    = Importance("low")
)

func ParseImportance(s string) (Importance, error) {
	switch i := Importance(strings.ToLower(strings.TrimSpace(s))); i {
	case High, Medium, Low:
		return i, nil
	}
	return "", fmt.Errorf("%w: unknown importance %q", ErrInvalidInput, s)
}

type UserAction string

const (
	Opened  = UserAction("opened")
	Replied = UserAction("replied")
	Deleted = UserAction("deleted")
	Ignored = UserAction("ignored")
	Starred = UserAction("starred")
)

func ParseUserAction(s string) (UserAction, error) {
	switch a := UserAction(strings.ToLower(strings.TrimSpace(s))); a {
	case Opened, Replied, Deleted, Ignored, Starred:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown user action %q", ErrInvalidInput, s)
}

// PromotesSender reports whether the action marks the sender as a VIP.
func (a UserAction) PromotesSender() bool {
	return a == Replied || a == Starred
}

// Reasons of failed classification attempts. Records carrying them are
// transient and never count as classified.
const (
	ReasonUnavailable = "AI unavailable"
	ReasonUnparseable = "Could not classify"
)

// TriageRecord is one row of the triage log. A classification entry has
// Importance set and UserAction nil, a behaviour entry the other way round.
type TriageRecord struct {
	ID          string
	EmailID     string
	Importance  *Importance
	Reason      string
	UserAction  *UserAction
	SenderEmail string
	CreatedAt   time.Time
}

type TriageResult struct {
	EmailID      string     `json:"email_id"`
	Importance   Importance `json:"importance"`
	Reason       string     `json:"reason"`
	ShouldNotify bool       `json:"should_notify"`
}

type Outcome int

const (
	Classified = Outcome(iota)
	Unavailable
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Classified:
		return "classified"
	case Unavailable:
		return "unavailable"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Verdict tags a classification result with how it was obtained. Failed
// verdicts carry importance low and one of the failure reasons.
type Verdict struct {
	Result  TriageResult
	Outcome Outcome
}

func (v Verdict) Failed() bool {
	return v.Outcome != Classified
}

// Email is a row of the mail store owned by the sync side.
type Email struct {
	ID          string
	UID         uint32
	AccountID   string
	Folder      string
	Sender      string
	SenderEmail string
	Subject     string
	Snippet     string
	Body        string
	ReceivedAt  time.Time
}

type VIPReason string

const (
	VIPManual      = VIPReason("manual")
	VIPAutoLearned = VIPReason("auto-learned")
)

type VIPSender struct {
	ID          string    `json:"id"`
	SenderEmail string    `json:"sender_email"`
	Reason      VIPReason `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversationSummary struct {
	AccountID    string    `json:"account_id"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AIConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}
