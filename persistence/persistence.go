// SPDX-License-Identifier: GPL-3.0-or-later
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/persistence/migrations"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

type Persistence struct {
	db  *sqlx.DB
	l   *logrus.Logger
	now func() time.Time
}

func NewPersistence(datasource string) (*Persistence, error) {
	db, err := sqlx.Connect("sqlite3", datasource)
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := log.Logger(log.LOG_PERSISTENCE)
	l.WithField("file", datasource).Info("Connected")

	_, err = db.Exec(`PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("could not set journal mode: %w", err)
	}
	_, err = db.Exec(`PRAGMA synchronous=normal`)
	if err != nil {
		return nil, fmt.Errorf("could not set synchronous mode: %w", err)
	}

	appliedMigrations, err := migrate.Exec(db.DB, "sqlite3", migrations.Source(), migrate.Up)
	if err != nil {
		return nil, fmt.Errorf("could not migrate to newest version: %w", err)
	}

	l.WithField("migrations", appliedMigrations).Debug("Executed migrations")

	p := &Persistence{
		db:  db,
		l:   l,
		now: func() time.Time { return time.Now().UTC() },
	}

	purged, err := p.PurgeTransientTriage(context.Background())
	if err != nil {
		return nil, err
	}
	if purged > 0 {
		l.WithField("count", purged).Info("Purged failed triage records")
	}

	return p, nil
}

func (p *Persistence) Close() error {
	err := p.db.Close()
	if err != nil {
		return fmt.Errorf("could not close db: %w", err)
	}
	p.l.Info("Disconnected")
	return nil
}

type dbEmail struct {
	ID          string    `db:"id"`
	UID         uint32    `db:"uid"`
	AccountID   string    `db:"account_id"`
	Folder      string    `db:"folder"`
	Sender      string    `db:"sender"`
	SenderEmail string    `db:"sender_email"`
	Subject     string    `db:"subject"`
	Snippet     string    `db:"snippet"`
	Body        string    `db:"body"`
	ReceivedAt  time.Time `db:"received_at"`
}

func (e *dbEmail) toDomain() *domain.Email {
	return &domain.Email{
		ID:          e.ID,
		UID:         e.UID,
		AccountID:   e.AccountID,
		Folder:      e.Folder,
		Sender:      e.Sender,
		SenderEmail: e.SenderEmail,
		Subject:     e.Subject,
		Snippet:     e.Snippet,
		Body:        e.Body,
		ReceivedAt:  e.ReceivedAt,
	}
}

const emailColumns = `e.id, e.uid, e.account_id, e.folder, e.sender, e.sender_email, e.subject, e.snippet, e.body, e.received_at`

func (p *Persistence) SaveEmails(ctx context.Context, emails []domain.Email) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}

	stmt, err := tx.PreparexContext(
		ctx,
		`INSERT OR IGNORE INTO emails (id, uid, account_id, folder, sender, sender_email, subject, snippet, body, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return txEnd(tx, fmt.Errorf("could not prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, e := range emails {
		receivedAt := e.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = p.now()
		}
		_, err := stmt.ExecContext(
			ctx,
			e.ID, e.UID, e.AccountID, e.Folder, e.Sender, e.SenderEmail, e.Subject, e.Snippet, e.Body, receivedAt.UTC(),
		)
		if err != nil {
			return txEnd(tx, fmt.Errorf("could not save email: %w", err))
		}
	}

	return txEnd(tx, nil)
}

func (p *Persistence) MaxUID(ctx context.Context, accountID, folder string) (uint32, error) {
	var uid uint32
	err := p.db.GetContext(
		ctx,
		&uid,
		`SELECT COALESCE(MAX(uid), 0) FROM emails WHERE account_id = ? AND folder = ?`,
		accountID, folder,
	)
	if err != nil {
		return 0, fmt.Errorf("could not query db: %w", err)
	}
	return uid, nil
}

func (p *Persistence) GetEmail(ctx context.Context, emailID string) (*domain.Email, error) {
	e := dbEmail{}
	err := p.db.GetContext(ctx, &e, `SELECT `+emailColumns+` FROM emails e WHERE e.id = ?`, emailID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %s: %w", emailID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not query db: %w", err)
	}
	return e.toDomain(), nil
}

func newID() string {
	return ulid.Make().String()
}

func txEnd(tx *sqlx.Tx, err error) error {
	if err == nil {
		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("could not commit tx: %w", err)
		}
	} else {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			errStr := err.Error()
			return fmt.Errorf("%s, could not rollback tx: %w", errStr, rollbackErr)
		} else {
			return err
		}
	}

	return nil
}
