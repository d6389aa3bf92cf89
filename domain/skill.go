// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"encoding/json"
	"time"
)

type SkillType string

const (
	SenderRule  = SkillType("sender_rule")
	KeywordRule = SkillType("keyword_rule")
	TimeRule    = SkillType("time_rule")
	StylePref   = SkillType("style_pref")
)

func (t SkillType) Valid() bool {
	switch t {
	case SenderRule, KeywordRule, TimeRule, StylePref:
		return true
	}
	return false
}

// Confidence bounds shared by every skill mutation.
const (
	ConfidenceCeiling = 0.95
	ConfidenceFloor   = 0.2
)

type Skill struct {
	ID           string          `json:"id"`
	Type         SkillType       `json:"skill_type"`
	Description  string          `json:"description"`
	Rule         json.RawMessage `json:"rule"`
	Confidence   float64         `json:"confidence"`
	TimesApplied int             `json:"times_applied"`
	TimesCorrect int             `json:"times_correct"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BehaviorCount aggregates how often the user took an action on mail of one
// sender.
type BehaviorCount struct {
	SenderEmail string
	Action      UserAction
	Count       int
}

// FeedbackPair is a prediction together with a later user action on the
// same email.
type FeedbackPair struct {
	EmailID    string
	Importance Importance
	Action     UserAction
}

// EvaluationUpdate is applied to all active skills in one step.
type EvaluationUpdate struct {
	Delta   float64
	Applied int
	Correct int
}
