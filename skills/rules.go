// SPDX-License-Identifier: GPL-3.0-or-later
package skills

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CrawX/go-imap-triage/classifier"
	"github.com/CrawX/go-imap-triage/domain"

	"github.com/google/go-cmp/cmp"
)

const DefaultConfidence = 0.5

type rawCandidate struct {
	SkillType   *string         `json:"skill_type"`
	Description *string         `json:"description"`
	Rule        json.RawMessage `json:"rule"`
	RuleJSON    json.RawMessage `json:"rule_json"`
	Confidence  *float64        `json:"confidence"`
}

type candidate struct {
	Type        domain.SkillType
	Description string
	Rule        json.RawMessage
	Confidence  float64
}

// parseCandidates reads the array of proposed skills. Entries that cannot be
// turned into a skill are returned as rejects instead of failing the batch.
func parseCandidates(text string) ([]candidate, []error, error) {
	clean := classifier.StripFences(text)
	raws := []rawCandidate{}
	err := json.Unmarshal([]byte(clean), &raws)
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse skill candidates: %w", err)
	}

	candidates := []candidate{}
	rejects := []error{}
	for i, raw := range raws {
		c, err := raw.toCandidate()
		if err != nil {
			rejects = append(rejects, fmt.Errorf("candidate %d: %w", i, err))
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, rejects, nil
}

func (r rawCandidate) toCandidate() (candidate, error) {
	c := candidate{
		Type:        domain.SenderRule,
		Description: "Auto-generated rule",
		Confidence:  DefaultConfidence,
	}

	if r.SkillType != nil {
		c.Type = domain.SkillType(strings.ToLower(strings.TrimSpace(*r.SkillType)))
		if !c.Type.Valid() {
			return candidate{}, fmt.Errorf("unknown skill type %q", *r.SkillType)
		}
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) != "" {
		c.Description = strings.TrimSpace(*r.Description)
	}
	if r.Confidence != nil {
		c.Confidence = clampConfidence(*r.Confidence)
	}

	payload := r.Rule
	if len(payload) == 0 {
		payload = r.RuleJSON
	}
	rule, err := canonicalRule(payload)
	if err != nil {
		return candidate{}, err
	}
	c.Rule = rule

	return c, nil
}

// canonicalRule accepts a rule as JSON value or as a string holding JSON and
// returns it compact with object keys sorted.
func canonicalRule(payload json.RawMessage) (json.RawMessage, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, fmt.Errorf("rule is missing")
	}

	if payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, fmt.Errorf("could not decode rule string: %w", err)
		}
		payload = json.RawMessage(strings.TrimSpace(inner))
	}

	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("rule is not valid json: %w", err)
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("could not encode rule: %w", err)
	}
	return canonical, nil
}

// ruleSet holds decoded rules and detects structural duplicates, so key
// order and whitespace do not make two rules different.
type ruleSet struct {
	rules []interface{}
}

func (rs *ruleSet) add(rule json.RawMessage) bool {
	var decoded interface{}
	if err := json.Unmarshal(rule, &decoded); err != nil {
		return false
	}
	if rs.contains(decoded) {
		return false
	}
	rs.rules = append(rs.rules, decoded)
	return true
}

func (rs *ruleSet) contains(decoded interface{}) bool {
	for _, existing := range rs.rules {
		if cmp.Equal(existing, decoded) {
			return true
		}
	}
	return false
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > domain.ConfidenceCeiling {
		return domain.ConfidenceCeiling
	}
	return confidence
}
