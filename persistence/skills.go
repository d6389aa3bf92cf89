// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type dbSkill struct {
	ID           string    `db:"id"`
	SkillType    string    `db:"skill_type"`
	Description  string    `db:"description"`
	RuleJSON     string    `db:"rule_json"`
	Confidence   float64   `db:"confidence"`
	TimesApplied int       `db:"times_applied"`
	TimesCorrect int       `db:"times_correct"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (s *dbSkill) toDomain() *domain.Skill {
	return &domain.Skill{
		ID:           s.ID,
		Type:         domain.SkillType(s.SkillType),
		Description:  s.Description,
		Rule:         json.RawMessage(s.RuleJSON),
		Confidence:   s.Confidence,
		TimesApplied: s.TimesApplied,
		TimesCorrect: s.TimesCorrect,
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

const skillColumns = `id, skill_type, description, rule_json, confidence, times_applied, times_correct, active, created_at, updated_at`

// SaveSkill inserts a new skill. Id and timestamps are filled in when unset.
func (p *Persistence) SaveSkill(ctx context.Context, skill *domain.Skill) error {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	now := p.now()
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = now
	}
	if skill.UpdatedAt.IsZero() {
		skill.UpdatedAt = now
	}

	_, err := p.db.ExecContext(
		ctx,
		`INSERT INTO ai_skills (`+skillColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		skill.ID, string(skill.Type), skill.Description, string(skill.Rule), skill.Confidence,
		skill.TimesApplied, skill.TimesCorrect, skill.Active, skill.CreatedAt.UTC(), skill.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("could not save skill: %w", err)
	}

	p.l.WithFields(logrus.Fields{"id": skill.ID, "type": skill.Type, "confidence": skill.Confidence}).Info("Persisted skill")
	return nil
}

func (p *Persistence) GetSkill(ctx context.Context, id string) (*domain.Skill, error) {
	s := dbSkill{}
	err := p.db.GetContext(ctx, &s, `SELECT `+skillColumns+` FROM ai_skills WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}
	return s.toDomain(), nil
}

func (p *Persistence) ListSkills(ctx context.Context) ([]*domain.Skill, error) {
	return p.selectSkills(ctx, `SELECT `+skillColumns+` FROM ai_skills ORDER BY active DESC, confidence DESC, created_at ASC`)
}

func (p *Persistence) ActiveSkills(ctx context.Context) ([]*domain.Skill, error) {
	return p.selectSkills(ctx, `SELECT `+skillColumns+` FROM ai_skills WHERE active = 1 ORDER BY created_at ASC, id ASC`)
}

func (p *Persistence) ContextSkills(ctx context.Context, minConfidence float64, limit int) ([]*domain.Skill, error) {
	return p.selectSkills(
		ctx,
		`SELECT `+skillColumns+` FROM ai_skills WHERE active = 1 AND confidence > ? ORDER BY confidence DESC, created_at ASC LIMIT ?`,
		minConfidence, limit,
	)
}

func (p *Persistence) selectSkills(ctx context.Context, qry string, args ...interface{}) ([]*domain.Skill, error) {
	rows := []dbSkill{}
	err := p.db.SelectContext(ctx, &rows, qry, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query skills: %w", err)
	}

	skills := make([]*domain.Skill, 0, len(rows))
	for i := range rows {
		skills = append(skills, rows[i].toDomain())
	}
	return skills, nil
}

func (p *Persistence) SetSkillActive(ctx context.Context, id string, active bool) error {
	result, err := p.db.ExecContext(
		ctx,
		`UPDATE ai_skills SET active = ?, updated_at = ? WHERE id = ?`,
		active, p.now(), id,
	)
	if err != nil {
		return fmt.Errorf("could not update skill: %w", err)
	}
	return expectOneRow(result, id)
}

func (p *Persistence) DeleteSkill(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM ai_skills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete skill: %w", err)
	}
	return expectOneRow(result, id)
}

// ApplyEvaluation moves the confidence of every active skill by the delta,
// keeps it within bounds and retires skills that fell below the floor. It
// returns the number of retired skills.
func (p *Persistence) ApplyEvaluation(ctx context.Context, update domain.EvaluationUpdate) (int64, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not start transaction: %w", err)
	}

	now := p.now()
	_, err = tx.ExecContext(
		ctx,
		`UPDATE ai_skills
		SET confidence = MIN(?, MAX(0, ROUND(confidence + ?, 4))),
			times_applied = times_applied + ?,
			times_correct = times_correct + ?,
			updated_at = ?
		WHERE active = 1`,
		domain.ConfidenceCeiling, update.Delta, update.Applied, update.Correct, now,
	)
	if err != nil {
		return 0, txEnd(tx, fmt.Errorf("could not adjust confidence: %w", err))
	}

	result, err := tx.ExecContext(
		ctx,
		`UPDATE ai_skills SET active = 0, updated_at = ? WHERE active = 1 AND confidence < ?`,
		now, domain.ConfidenceFloor,
	)
	if err != nil {
		return 0, txEnd(tx, fmt.Errorf("could not deactivate skills: %w", err))
	}

	deactivated, err := result.RowsAffected()
	if err != nil {
		return 0, txEnd(tx, fmt.Errorf("could not get num of affected rows: %w", err))
	}

	return deactivated, txEnd(tx, nil)
}

func expectOneRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get num of affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("skill %s: %w", id, domain.ErrNotFound)
	}
	if affected != 1 {
		return fmt.Errorf("unexpected number of affected rows, expected 1 got %d", affected)
	}
	return nil
}
