// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AddVIP inserts the sender unless it already is a VIP and reports whether a
// row was created.
func (p *Persistence) AddVIP(ctx context.Context, vip domain.VIPSender) (bool, error) {
	if vip.ID == "" {
		vip.ID = uuid.NewString()
	}
	if vip.CreatedAt.IsZero() {
		vip.CreatedAt = p.now()
	}

	result, err := p.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO ai_vip_senders (id, sender_email, reason, created_at) VALUES (?, ?, ?, ?)`,
		vip.ID, vip.SenderEmail, string(vip.Reason), vip.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("could not save vip sender: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get num of affected rows: %w", err)
	}

	if affected > 0 {
		p.l.WithFields(logrus.Fields{"sender": vip.SenderEmail, "reason": vip.Reason}).Info("Persisted vip sender")
	}
	return affected > 0, nil
}

// ListVIPs returns VIP senders oldest first; a limit <= 0 returns all.
func (p *Persistence) ListVIPs(ctx context.Context, limit int) ([]*domain.VIPSender, error) {
	if limit <= 0 {
		limit = -1
	}

	rows := []struct {
		ID          string    `db:"id"`
		SenderEmail string    `db:"sender_email"`
		Reason      string    `db:"reason"`
		CreatedAt   time.Time `db:"created_at"`
	}{}
	err := p.db.SelectContext(
		ctx,
		&rows,
		`SELECT id, sender_email, reason, created_at FROM ai_vip_senders ORDER BY created_at ASC, sender_email ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("could not query vip senders: %w", err)
	}

	vips := make([]*domain.VIPSender, 0, len(rows))
	for _, r := range rows {
		vips = append(vips, &domain.VIPSender{
			ID:          r.ID,
			SenderEmail: r.SenderEmail,
			Reason:      domain.VIPReason(r.Reason),
			CreatedAt:   r.CreatedAt,
		})
	}
	return vips, nil
}

func (p *Persistence) SaveSummary(ctx context.Context, summary domain.ConversationSummary) error {
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = p.now()
	}

	_, err := p.db.ExecContext(
		ctx,
		`INSERT INTO ai_conversation_summary (account_id, summary, message_count, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			summary = excluded.summary,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at`,
		summary.AccountID, summary.Summary, summary.MessageCount, summary.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("could not save conversation summary: %w", err)
	}
	return nil
}

// LoadSummary returns nil when the account has no summary yet.
func (p *Persistence) LoadSummary(ctx context.Context, accountID string) (*domain.ConversationSummary, error) {
	row := struct {
		AccountID    string    `db:"account_id"`
		Summary      string    `db:"summary"`
		MessageCount int       `db:"message_count"`
		UpdatedAt    time.Time `db:"updated_at"`
	}{}

	err := p.db.GetContext(
		ctx,
		&row,
		`SELECT account_id, summary, message_count, updated_at FROM ai_conversation_summary WHERE account_id = ?`,
		accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not query conversation summary: %w", err)
	}

	return &domain.ConversationSummary{
		AccountID:    row.AccountID,
		Summary:      row.Summary,
		MessageCount: row.MessageCount,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

const (
	aiConfigEndpoint = "ai_endpoint"
	aiConfigAPIKey   = "ai_api_key"
	aiConfigModel    = "ai_model"
)

func (p *Persistence) SaveAIConfig(ctx context.Context, cfg domain.AIConfig) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	for key, value := range map[string]string{
		aiConfigEndpoint: cfg.Endpoint,
		aiConfigAPIKey:   cfg.APIKey,
		aiConfigModel:    cfg.Model,
	} {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO ai_config (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save ai config %s: %w", key, err))
		}
	}

	err = txEnd(tx, nil)
	if err != nil {
		return err
	}

	p.l.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "model": cfg.Model}).Info("Persisted ai config")
	return nil
}

// LoadAIConfig returns the saved settings; keys never saved stay empty.
func (p *Persistence) LoadAIConfig(ctx context.Context) (*domain.AIConfig, error) {
	rows := []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}{}
	err := p.db.SelectContext(ctx, &rows, `SELECT key, value FROM ai_config`)
	if err != nil {
		return nil, fmt.Errorf("could not query ai config: %w", err)
	}

	cfg := &domain.AIConfig{}
	for _, r := range rows {
		switch r.Key {
		case aiConfigEndpoint:
			cfg.Endpoint = r.Value
		case aiConfigAPIKey:
			cfg.APIKey = r.Value
		case aiConfigModel:
			cfg.Model = r.Value
		}
	}
	return cfg, nil
}
