// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// InboxFolder is the only folder triage looks at.
const InboxFolder = "INBOX"

// An email counts as classified once it has a classification record that is
// not a failed attempt. Behaviour-only records do not count.
const unclassifiedFilter = `e.account_id = ? AND e.folder = '` + InboxFolder + `'
	AND NOT EXISTS (
		SELECT 1 FROM ai_triage_log t
		WHERE t.email_id = e.id AND t.importance IS NOT NULL AND t.reason NOT IN (?, ?)
	)`

type dbTriageRecord struct {
	ID          string         `db:"id"`
	EmailID     string         `db:"email_id"`
	Importance  sql.NullString `db:"importance"`
	Reason      string         `db:"reason"`
	UserAction  sql.NullString `db:"user_action"`
	SenderEmail string         `db:"sender_email"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r *dbTriageRecord) toDomain() *domain.TriageRecord {
	record := &domain.TriageRecord{
		ID:          r.ID,
		EmailID:     r.EmailID,
		Reason:      r.Reason,
		SenderEmail: r.SenderEmail,
		CreatedAt:   r.CreatedAt,
	}
	if r.Importance.Valid {
		importance := domain.Importance(r.Importance.String)
		record.Importance = &importance
	}
	if r.UserAction.Valid {
		action := domain.UserAction(r.UserAction.String)
		record.UserAction = &action
	}
	return record
}

const triageColumns = `t.id, t.email_id, t.importance, t.reason, t.user_action, t.sender_email, t.created_at`

func (p *Persistence) PurgeTransientTriage(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(
		ctx,
		`DELETE FROM ai_triage_log WHERE reason IN (?, ?)`,
		domain.ReasonUnavailable, domain.ReasonUnparseable,
	)
	if err != nil {
		return 0, fmt.Errorf("could not purge failed triage records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("could not get num of affected rows: %w", err)
	}
	return affected, nil
}

func (p *Persistence) CountUnclassified(ctx context.Context, accountID string) (int, error) {
	var count int
	err := p.db.GetContext(
		ctx,
		&count,
		`SELECT COUNT(*) FROM emails e WHERE `+unclassifiedFilter,
		accountID, domain.ReasonUnavailable, domain.ReasonUnparseable,
	)
	if err != nil {
		return 0, fmt.Errorf("could not count unclassified emails: %w", err)
	}
	return count, nil
}

// NextUnclassified returns the newest unclassified inbox email of the
// account, or nil when the backlog is empty.
func (p *Persistence) NextUnclassified(ctx context.Context, accountID string) (*domain.Email, error) {
	e := dbEmail{}
	err := p.db.GetContext(
		ctx,
		&e,
		`SELECT `+emailColumns+` FROM emails e WHERE `+unclassifiedFilter+` ORDER BY e.uid DESC LIMIT 1`,
		accountID, domain.ReasonUnavailable, domain.ReasonUnparseable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query next unclassified email: %w", err)
	}
	return e.toDomain(), nil
}

// SaveTriageRecord inserts the record unless one with the same id exists.
func (p *Persistence) SaveTriageRecord(ctx context.Context, record domain.TriageRecord) error {
	if record.ID == "" {
		record.ID = newID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = p.now()
	}

	var importance, action sql.NullString
	if record.Importance != nil {
		importance = sql.NullString{String: string(*record.Importance), Valid: true}
	}
	if record.UserAction != nil {
		action = sql.NullString{String: string(*record.UserAction), Valid: true}
	}

	_, err := p.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO ai_triage_log (id, email_id, importance, reason, user_action, sender_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.EmailID, importance, record.Reason, action, record.SenderEmail, record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("could not save triage record: %w", err)
	}

	p.l.WithFields(logrus.Fields{"email": record.EmailID, "importance": importance.String, "action": action.String}).Debug("Persisted triage record")
	return nil
}

func (p *Persistence) LatestImportance(ctx context.Context, emailIDs []string) (map[string]*domain.TriageRecord, error) {
	result := map[string]*domain.TriageRecord{}
	if len(emailIDs) == 0 {
		return result, nil
	}

	qry, args, err := sqlx.Named(
		`SELECT `+triageColumns+` FROM ai_triage_log t
		WHERE t.email_id IN (:ids) AND t.importance IS NOT NULL AND t.reason NOT IN (:unavailable, :unparseable)
		ORDER BY t.created_at ASC, t.id ASC`,
		map[string]interface{}{
			"ids":         emailIDs,
			"unavailable": domain.ReasonUnavailable,
			"unparseable": domain.ReasonUnparseable,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not create query: %w", err)
	}

	qry, args, err = sqlx.In(qry, args...)
	if err != nil {
		return nil, fmt.Errorf("could not replace IN in query: %w", err)
	}

	return p.latestByEmail(ctx, qry, args...)
}

func (p *Persistence) AccountImportance(ctx context.Context, accountID string) (map[string]*domain.TriageRecord, error) {
	return p.latestByEmail(
		ctx,
		`SELECT `+triageColumns+` FROM ai_triage_log t
		INNER JOIN emails e ON e.id = t.email_id
		WHERE e.account_id = ? AND t.importance IS NOT NULL AND t.reason NOT IN (?, ?)
		ORDER BY t.created_at ASC, t.id ASC`,
		accountID, domain.ReasonUnavailable, domain.ReasonUnparseable,
	)
}

// latestByEmail expects rows in ascending order so later rows win.
func (p *Persistence) latestByEmail(ctx context.Context, qry string, args ...interface{}) (map[string]*domain.TriageRecord, error) {
	rows := []dbTriageRecord{}
	err := p.db.SelectContext(ctx, &rows, p.db.Rebind(qry), args...)
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}

	result := map[string]*domain.TriageRecord{}
	for i := range rows {
		result[rows[i].EmailID] = rows[i].toDomain()
	}
	return result, nil
}

func (p *Persistence) CountActions(ctx context.Context) (int, error) {
	var count int
	err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ai_triage_log WHERE user_action IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("could not count actions: %w", err)
	}
	return count, nil
}

func (p *Persistence) BehaviorCounts(ctx context.Context, limit int) ([]domain.BehaviorCount, error) {
	rows := []struct {
		SenderEmail string `db:"sender_email"`
		UserAction  string `db:"user_action"`
		Count       int    `db:"cnt"`
	}{}

	err := p.db.SelectContext(
		ctx,
		&rows,
		`SELECT sender_email, user_action, COUNT(*) AS cnt
		FROM ai_triage_log
		WHERE user_action IS NOT NULL AND sender_email != ''
		GROUP BY sender_email, user_action
		ORDER BY cnt DESC, sender_email ASC, user_action ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("could not aggregate behavior: %w", err)
	}

	counts := make([]domain.BehaviorCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, domain.BehaviorCount{
			SenderEmail: r.SenderEmail,
			Action:      domain.UserAction(r.UserAction),
			Count:       r.Count,
		})
	}
	return counts, nil
}

// FeedbackPairs joins classification records with user actions recorded on
// the same email afterwards, newest predictions first.
func (p *Persistence) FeedbackPairs(ctx context.Context, limit int) ([]domain.FeedbackPair, error) {
	rows := []struct {
		EmailID    string `db:"email_id"`
		Importance string `db:"importance"`
		UserAction string `db:"user_action"`
	}{}

	err := p.db.SelectContext(
		ctx,
		&rows,
		`SELECT t1.email_id, t1.importance, t2.user_action
		FROM ai_triage_log t1
		INNER JOIN ai_triage_log t2 ON t1.email_id = t2.email_id
		WHERE t1.importance IS NOT NULL AND t1.user_action IS NULL AND t1.reason NOT IN (?, ?)
			AND t2.user_action IS NOT NULL AND t2.importance IS NULL
			AND t2.created_at >= t1.created_at
		ORDER BY t1.created_at DESC, t1.id DESC, t2.created_at ASC
		LIMIT ?`,
		domain.ReasonUnavailable, domain.ReasonUnparseable, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query feedback: %w", err)
	}

	pairs := make([]domain.FeedbackPair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, domain.FeedbackPair{
			EmailID:    r.EmailID,
			Importance: domain.Importance(r.Importance),
			Action:     domain.UserAction(r.UserAction),
		})
	}
	return pairs, nil
}
