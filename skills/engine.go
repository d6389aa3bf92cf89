// SPDX-License-Identifier: GPL-3.0-or-later
package skills

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/sirupsen/logrus"
)

const (
	BehaviorLimit      = 30
	FeedbackLimit      = 50
	MinActionsForCycle = 5

	ConfidenceStep    = 0.05
	AccuracyThreshold = 0.7

	NoDataMessage        = "Not enough behavior data yet."
	NoNewPatternsMessage = "No new patterns discovered."
)

const generationSystemPrompt = "You are the self-improvement engine of an email agent. Respond with JSON only."

const generationTemplate = `Analyze these email behavior patterns and create smart classification rules.

USER BEHAVIOR (sender -> action (times)):
%s

EXISTING RULES (do NOT duplicate):
%s

Create 1-3 new rules based on the patterns. Every rule MUST be valid JSON.
Respond ONLY with a JSON array, no explanation:

[
  {
    "skill_type": "sender_rule|keyword_rule|time_rule|style_pref",
    "description": "short sentence explaining the rule",
    "rule": {"match": "sender_contains", "value": "...", "action": "high|medium|low"},
    "confidence": 0.6
  }
]

Possible smart rules:
- If the user always opens mail from X: sender_rule, mark X as high
- If the user ignores mail from Y: sender_rule, mark Y as low
- If the user replies quickly to Z: sender_rule, Z is a VIP, high + notify`

// Engine discovers skills from user behaviour and grades them against the
// feedback the user gives by acting on classified mail.
type Engine struct {
	persistence domain.Persistence
	completer   domain.Completer

	cycle sync.Mutex

	l *logrus.Logger
}

func NewEngine(persistence domain.Persistence, completer domain.Completer) *Engine {
	return &Engine{
		persistence: persistence,
		completer:   completer,
		l:           log.Logger(log.LOG_SKILLS),
	}
}

// Generate asks the completion service for new rules derived from the
// recorded behaviour and stores the ones not already known. It returns the
// descriptions of created skills, or a single explanatory message.
func (e *Engine) Generate(ctx context.Context) ([]string, error) {
	counts, err := e.persistence.BehaviorCounts(ctx, BehaviorLimit)
	if err != nil {
		return nil, fmt.Errorf("could not load behavior: %w", err)
	}
	if len(counts) == 0 {
		e.l.Info("No behavior data, skipping skill generation")
		return []string{NoDataMessage}, nil
	}

	active, err := e.persistence.ActiveSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not load active skills: %w", err)
	}

	known := &ruleSet{}
	existing := []string{}
	for _, s := range active {
		known.add(s.Rule)
		existing = append(existing, string(s.Rule))
	}

	text, err := e.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:       generationPrompt(counts, existing),
		SystemPrompt: generationSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("could not generate skills: %w", err)
	}

	candidates, rejects, err := parseCandidates(text)
	if err != nil {
		return nil, err
	}
	for _, reject := range rejects {
		e.l.WithField("error", reject).Warn("Skipping skill candidate")
	}

	created := []string{}
	for _, c := range candidates {
		if !known.add(c.Rule) {
			e.l.WithField("rule", string(c.Rule)).Debug("Skipping duplicate rule")
			continue
		}

		skill := &domain.Skill{
			Type:        c.Type,
			Description: c.Description,
			Rule:        c.Rule,
			Confidence:  c.Confidence,
			Active:      c.Confidence >= domain.ConfidenceFloor,
		}
		err := e.persistence.SaveSkill(ctx, skill)
		if err != nil {
			e.l.WithFields(logrus.Fields{"error": err, "description": c.Description}).Warn("Could not save skill")
			continue
		}

		e.l.WithFields(logrus.Fields{"description": c.Description, "type": c.Type, "confidence": c.Confidence}).Info("Created skill")
		created = append(created, c.Description)
	}

	if len(created) == 0 {
		return []string{NoNewPatternsMessage}, nil
	}
	return created, nil
}

func generationPrompt(counts []domain.BehaviorCount, existing []string) string {
	behavior := make([]string, 0, len(counts))
	for _, c := range counts {
		behavior = append(behavior, fmt.Sprintf("  %s -> %s (%d times)", c.SenderEmail, c.Action, c.Count))
	}

	existingText := "No existing rules."
	if len(existing) > 0 {
		existingText = strings.Join(existing, "\n")
	}

	return fmt.Sprintf(generationTemplate, strings.Join(behavior, "\n"), existingText)
}

func (e *Engine) List(ctx context.Context) ([]*domain.Skill, error) {
	skills, err := e.persistence.ListSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list skills: %w", err)
	}
	return skills, nil
}

// Toggle switches a skill on or off. Skills below the confidence floor, or
// whose rule another active skill already holds, cannot be switched on.
func (e *Engine) Toggle(ctx context.Context, id string, active bool) error {
	if active {
		skill, err := e.persistence.GetSkill(ctx, id)
		if err != nil {
			return err
		}
		if skill.Confidence < domain.ConfidenceFloor {
			return fmt.Errorf("%w: skill %s has confidence %.2f, below %.2f", domain.ErrInvalidInput, id, skill.Confidence, domain.ConfidenceFloor)
		}

		others, err := e.persistence.ActiveSkills(ctx)
		if err != nil {
			return fmt.Errorf("could not load active skills: %w", err)
		}
		known := &ruleSet{}
		for _, other := range others {
			if other.ID != skill.ID {
				known.add(other.Rule)
			}
		}
		if !known.add(skill.Rule) {
			return fmt.Errorf("%w: skill %s has the same rule as an active skill", domain.ErrInvalidInput, id)
		}
	}

	err := e.persistence.SetSkillActive(ctx, id, active)
	if err != nil {
		return err
	}

	e.l.WithFields(logrus.Fields{"id": id, "active": active}).Info("Toggled skill")
	return nil
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.persistence.DeleteSkill(ctx, id)
	if err != nil {
		return err
	}

	e.l.WithField("id", id).Info("Deleted skill")
	return nil
}
