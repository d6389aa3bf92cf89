// SPDX-License-Identifier: GPL-3.0-or-later
package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/domain/mocks"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/persistence"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	os.Exit(m.Run())
}

func setup(t *testing.T) (*Engine, *persistence.Persistence, *mocks.MockCompleter) {
	t.Helper()
	ctrl := gomock.NewController(t)

	store, err := persistence.NewPersistence(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	completer := mocks.NewMockCompleter(ctrl)
	return NewEngine(store, completer), store, completer
}

func recordAction(t *testing.T, store *persistence.Persistence, emailID string, action domain.UserAction, sender string) {
	t.Helper()
	require.NoError(t, store.SaveTriageRecord(context.Background(), domain.TriageRecord{EmailID: emailID, UserAction: &action, SenderEmail: sender}))
}

func recordPrediction(t *testing.T, store *persistence.Persistence, emailID string, importance domain.Importance) {
	t.Helper()
	require.NoError(t, store.SaveTriageRecord(context.Background(), domain.TriageRecord{EmailID: emailID, Importance: &importance, Reason: "test"}))
}

func TestJudge(t *testing.T) {
	tests := []struct {
		importance domain.Importance
		action     domain.UserAction
		expected   judgement
	}{
		{domain.High, domain.Replied, correct},
		{domain.High, domain.Opened, correct},
		{domain.High, domain.Starred, correct},
		{domain.High, domain.Ignored, incorrect},
		{domain.High, domain.Deleted, incorrect},
		{domain.Low, domain.Ignored, correct},
		{domain.Low, domain.Deleted, correct},
		{domain.Low, domain.Replied, incorrect},
		{domain.Low, domain.Starred, incorrect},
		{domain.Low, domain.Opened, neutral},
		{domain.Medium, domain.Opened, correct},
		{domain.Medium, domain.Deleted, neutral},
		{domain.Medium, domain.Replied, neutral},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s_%s", tc.importance, tc.action), func(t *testing.T) {
			assert.Equal(t, tc.expected, judge(tc.importance, tc.action))
		})
	}
}

func TestCanonicalRule(t *testing.T) {
	a, err := canonicalRule(json.RawMessage(`{ "value": "boss", "match":"sender_contains" }`))
	require.NoError(t, err)
	b, err := canonicalRule(json.RawMessage(`"{\"match\":\"sender_contains\",\"value\":\"boss\"}"`))
	require.NoError(t, err)
	assert.Equal(t, `{"match":"sender_contains","value":"boss"}`, string(a))
	assert.Equal(t, a, b)

	_, err = canonicalRule(nil)
	assert.Error(t, err)
	_, err = canonicalRule(json.RawMessage(`"not json"`))
	assert.Error(t, err)
}

func TestGenerateWithoutData(t *testing.T) {
	engine, _, _ := setup(t)

	created, err := engine.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{NoDataMessage}, created)
}

const candidates = "```json\n" + `[
  {"skill_type": "sender_rule", "description": "Boss mail is high", "rule": {"match": "sender_contains", "value": "boss", "action": "high"}, "confidence": 0.7},
  {"skill_type": "sender_rule", "description": "Same rule again", "rule_json": "{\"action\":\"high\",\"value\":\"boss\",\"match\":\"sender_contains\"}"},
  {"skill_type": "mood_rule", "description": "Unknown type", "rule": {"x": 1}},
  {"skill_type": "keyword_rule", "description": "Newsletters are low", "rule": {"match": "subject_contains", "value": "newsletter", "action": "low"}, "confidence": 3},
  {"skill_type": "time_rule", "description": "Barely believed", "rule": {"match": "hour_after", "value": 22}, "confidence": 0.1},
  {"description": "No rule"}
]` + "\n```"

func TestGenerate(t *testing.T) {
	engine, store, completer := setup(t)
	ctx := context.Background()

	recordAction(t, store, "e1", domain.Replied, "boss@example.org")
	recordAction(t, store, "e2", domain.Replied, "boss@example.org")
	recordAction(t, store, "e3", domain.Deleted, "news@example.org")

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(func(_ context.Context, req domain.CompletionRequest) (string, error) {
		assert.Equal(t, generationSystemPrompt, req.SystemPrompt)
		assert.Contains(t, req.Prompt, "  boss@example.org -> replied (2 times)\n  news@example.org -> deleted (1 times)")
		return candidates, nil
	})

	created, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boss mail is high", "Newsletters are low", "Barely believed"}, created)

	all, err := store.ListSkills(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	byDescription := map[string]*domain.Skill{}
	for _, s := range all {
		byDescription[s.Description] = s
		assert.Zero(t, s.TimesApplied)
		assert.Zero(t, s.TimesCorrect)
	}
	assert.Equal(t, `{"action":"high","match":"sender_contains","value":"boss"}`, string(byDescription["Boss mail is high"].Rule))
	assert.Equal(t, 0.7, byDescription["Boss mail is high"].Confidence)
	assert.True(t, byDescription["Boss mail is high"].Active)
	assert.Equal(t, domain.ConfidenceCeiling, byDescription["Newsletters are low"].Confidence)
	assert.Equal(t, domain.KeywordRule, byDescription["Newsletters are low"].Type)
	assert.False(t, byDescription["Barely believed"].Active)

	// the same answer again only holds known rules, except the inactive one
	created, err = engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Barely believed"}, created)

	active, err := store.ActiveSkills(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assertUniqueRules(t, active)
}

func TestGenerateTwiceIdentical(t *testing.T) {
	engine, store, completer := setup(t)
	ctx := context.Background()
	recordAction(t, store, "e1", domain.Opened, "boss@example.org")

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(2).
		Return(`[{"skill_type":"sender_rule","description":"Boss","rule":{"value":"boss","action":"high"}}]`, nil)

	created, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boss"}, created)

	created, err = engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{NoNewPatternsMessage}, created)

	active, err := store.ActiveSkills(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, DefaultConfidence, active[0].Confidence)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{"unavailable", "", errors.New("timeout")},
		{"malformed", `{"skill_type":"sender_rule"}`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, store, completer := setup(t)
			recordAction(t, store, "e1", domain.Opened, "boss@example.org")
			completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tc.text, tc.err)

			created, err := engine.Generate(context.Background())
			assert.Error(t, err)
			assert.Nil(t, created)
		})
	}
}

func seedSkills(t *testing.T, store *persistence.Persistence, confidences ...float64) {
	t.Helper()
	for i, c := range confidences {
		require.NoError(t, store.SaveSkill(context.Background(), &domain.Skill{
			Type:        domain.SenderRule,
			Description: fmt.Sprintf("skill %d", i),
			Rule:        json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
			Confidence:  c,
			Active:      true,
		}))
	}
}

func TestEvaluate(t *testing.T) {
	engine, store, _ := setup(t)
	ctx := context.Background()
	seedSkills(t, store, 0.5, 0.93)

	recordPrediction(t, store, "e1", domain.High)
	recordAction(t, store, "e1", domain.Replied, "a@example.org")
	recordPrediction(t, store, "e2", domain.Low)
	recordAction(t, store, "e2", domain.Deleted, "b@example.org")
	recordPrediction(t, store, "e3", domain.Medium)
	recordAction(t, store, "e3", domain.Ignored, "c@example.org")

	ev, err := engine.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Evaluation{Pairs: 3, Correct: 3, Incorrect: 0, Accuracy: 1, Delta: ConfidenceStep}, ev)
	assert.Equal(t, "Evaluation: 3 correct, 0 incorrect. Accuracy: 100%. Skills adjusted.", ev.String())

	active, err := engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, domain.ConfidenceCeiling, active[0].Confidence)
	assert.InDelta(t, 0.55, active[1].Confidence, 1e-9)
	assert.Equal(t, 3, active[1].TimesApplied)
	assert.Equal(t, 3, active[1].TimesCorrect)
}

func TestEvaluateWithoutFeedback(t *testing.T) {
	engine, store, _ := setup(t)
	seedSkills(t, store, 0.5)

	ev, err := engine.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5, ev.Accuracy)
	assert.Equal(t, -ConfidenceStep, ev.Delta)
}

func TestConfidenceBounds(t *testing.T) {
	engine, store, _ := setup(t)
	ctx := context.Background()
	seedSkills(t, store, 0.95, 0.5, 0.3, 0.21)

	recordPrediction(t, store, "e1", domain.High)
	recordAction(t, store, "e1", domain.Deleted, "a@example.org")

	for i := 0; i < 25; i++ {
		_, err := engine.Evaluate(ctx)
		require.NoError(t, err)

		all, err := store.ListSkills(ctx)
		require.NoError(t, err)
		for _, s := range all {
			assert.GreaterOrEqual(t, s.Confidence, 0.0)
			assert.LessOrEqual(t, s.Confidence, domain.ConfidenceCeiling)
			if s.Confidence < domain.ConfidenceFloor {
				assert.False(t, s.Active, "skill %s at %.2f must be inactive", s.Description, s.Confidence)
			}
		}
	}

	active, err := store.ActiveSkills(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestEvaluateStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockPersistence(ctrl)
	store.EXPECT().FeedbackPairs(gomock.Any(), FeedbackLimit).Return(nil, errors.New("locked"))

	_, err := NewEngine(store, nil).Evaluate(context.Background())
	assert.EqualError(t, err, "could not load feedback: locked")
}

func TestRunCycleNeedsData(t *testing.T) {
	engine, store, _ := setup(t)
	for i := 0; i < MinActionsForCycle-1; i++ {
		recordAction(t, store, fmt.Sprintf("e%d", i), domain.Opened, "a@example.org")
	}

	report, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, MinActionsForCycle-1, report.Actions)
	assert.Nil(t, report.Evaluation)
}

func TestRunCycle(t *testing.T) {
	engine, store, completer := setup(t)
	ctx := context.Background()
	seedSkills(t, store, 0.5)

	for i := 0; i < MinActionsForCycle; i++ {
		id := fmt.Sprintf("e%d", i)
		recordPrediction(t, store, id, domain.High)
		recordAction(t, store, id, domain.Opened, "boss@example.org")
	}

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req domain.CompletionRequest) (string, error) {
		// evaluation ran first, the existing rule is still listed
		active, err := store.ActiveSkills(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 0.55, active[0].Confidence, 1e-9)
		assert.Contains(t, req.Prompt, `{"n":0}`)
		return `[{"skill_type":"sender_rule","description":"Boss is high","rule":{"value":"boss"}}]`, nil
	})

	report, err := engine.RunCycle(ctx)
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, MinActionsForCycle, report.Actions)
	assert.Equal(t, MinActionsForCycle, report.Evaluation.Correct)
	assert.Equal(t, []string{"Boss is high"}, report.Created)
}

func TestRunCycleDoesNotOverlap(t *testing.T) {
	engine, _, _ := setup(t)

	engine.cycle.Lock()
	defer engine.cycle.Unlock()

	report, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "already running", report.Reason)
}

func TestToggleAndDelete(t *testing.T) {
	engine, store, _ := setup(t)
	ctx := context.Background()
	seedSkills(t, store, 0.6)
	require.NoError(t, store.SaveSkill(ctx, &domain.Skill{ID: "weak", Type: domain.SenderRule, Rule: json.RawMessage(`{}`), Confidence: 0.1}))

	all, err := engine.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	strong := all[0].ID

	require.NoError(t, engine.Toggle(ctx, strong, false))
	require.NoError(t, engine.Toggle(ctx, strong, true))
	assert.ErrorIs(t, engine.Toggle(ctx, "weak", true), domain.ErrInvalidInput)
	assert.ErrorIs(t, engine.Toggle(ctx, "missing", true), domain.ErrNotFound)

	require.NoError(t, engine.Delete(ctx, "weak"))
	assert.ErrorIs(t, engine.Delete(ctx, "weak"), domain.ErrNotFound)
}

func TestToggleRejectsDuplicateRule(t *testing.T) {
	engine, store, completer := setup(t)
	ctx := context.Background()
	recordAction(t, store, "e1", domain.Replied, "boss@example.org")

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(2).
		Return(`[{"skill_type":"sender_rule","description":"Boss","rule":{"match":"sender_contains","value":"boss","action":"high"}}]`, nil)

	_, err := engine.Generate(ctx)
	require.NoError(t, err)
	first, err := store.ActiveSkills(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	original := first[0].ID

	require.NoError(t, engine.Toggle(ctx, original, false))

	// with the original switched off the same rule is learned again
	created, err := engine.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Boss"}, created)

	assert.ErrorIs(t, engine.Toggle(ctx, original, true), domain.ErrInvalidInput)

	active, err := store.ActiveSkills(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, original, active[0].ID)
	assertUniqueRules(t, active)

	// switching on an already active skill does not clash with itself
	require.NoError(t, engine.Toggle(ctx, active[0].ID, true))
}

func assertUniqueRules(t *testing.T, skills []*domain.Skill) {
	t.Helper()
	seen := &ruleSet{}
	for _, s := range skills {
		assert.True(t, seen.add(s.Rule), "duplicate active rule %s", string(s.Rule))
	}
}
