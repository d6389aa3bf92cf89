// SPDX-License-Identifier: GPL-3.0-or-later

//go:generate mockgen -destination=mocks/events.go -package=mocks . EventSink
package domain

const (
	EventTriageProgress  = "triage-progress"
	EventEmailClassified = "email-classified"
	EventImportantMail   = "important-mail"
	EventProactiveDraft  = "proactive-draft"
)

type ProgressStatus string

const (
	ProgressStarted     = ProgressStatus("started")
	ProgressClassifying = ProgressStatus("classifying")
	ProgressDone        = ProgressStatus("done")
)

type TriageProgress struct {
	Total          int            `json:"total"`
	Processed      int            `json:"processed"`
	CurrentSubject string         `json:"current_subject,omitempty"`
	Status         ProgressStatus `json:"status"`
}

type EmailClassified struct {
	EmailID    string     `json:"email_id"`
	Importance Importance `json:"importance"`
	Reason     string     `json:"reason"`
}

type ImportantMail struct {
	AccountID  string     `json:"account_id"`
	EmailID    string     `json:"email_id"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	Importance Importance `json:"importance"`
}

type ProactiveDraft struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type EventSink interface {
	Emit(name string, payload interface{})
}
