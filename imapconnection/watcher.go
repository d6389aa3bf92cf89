// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/mail"

	"github.com/sirupsen/logrus"
)

// InitialSync is how many of the newest mails are imported when nothing of
// the folder is stored yet.
const InitialSync = 50

type Dialer func() (domain.ImapConnector, error)

// Watcher keeps the mail store of one folder up to date and reports every
// batch of new mail to onArrival.
type Watcher struct {
	persistence domain.Persistence
	dial        Dialer
	onArrival   func(accountID string)

	accountID string
	folder    string
	reconnect time.Duration

	l *logrus.Logger
}

func NewWatcher(persistence domain.Persistence, dial Dialer, accountID, folder string, reconnect time.Duration, onArrival func(accountID string)) *Watcher {
	return &Watcher{
		persistence: persistence,
		dial:        dial,
		onArrival:   onArrival,
		accountID:   accountID,
		folder:      folder,
		reconnect:   reconnect,
		l:           log.Logger(log.LOG_IMAP),
	}
}

func EmailID(accountID, folder string, uid uint32) string {
	if folder == "INBOX" {
		return fmt.Sprintf("%s_%d", accountID, uid)
	}
	return fmt.Sprintf("%s_%s_%d", accountID, folder, uid)
}

// Run watches until ctx is done. Connection failures are logged and retried
// after the reconnect delay.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.l.WithFields(logrus.Fields{"account": w.accountID, "folder": w.folder})
	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			logger.Info("Watcher stopped")
			return nil
		}
		logger.WithFields(logrus.Fields{"error": err, "retry": w.reconnect}).Warn("Imap session ended, reconnecting")

		select {
		case <-ctx.Done():
			logger.Info("Watcher stopped")
			return nil
		case <-time.After(w.reconnect):
		}
	}
}

func (w *Watcher) session(ctx context.Context) error {
	conn, err := w.dial()
	if err != nil {
		return fmt.Errorf("could not connect: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			w.l.WithField("error", err).Debug("Could not close imap connection")
		}
	}()

	status, err := conn.Select(w.folder)
	if err != nil {
		return err
	}

	for {
		_, err := w.Sync(ctx, conn, status)
		if err != nil {
			return err
		}

		err = conn.WaitForUpdate(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Sync stores mails newer than the newest stored one and reports them. It
// returns the number of new mails.
func (w *Watcher) Sync(ctx context.Context, conn domain.ImapConnector, status *domain.MailboxStatus) (int, error) {
	logger := w.l.WithFields(logrus.Fields{"account": w.accountID, "folder": w.folder})

	last, err := w.persistence.MaxUID(ctx, w.accountID, w.folder)
	if err != nil {
		return 0, fmt.Errorf("could not determine last stored uid: %w", err)
	}
	if last == 0 && status != nil && status.UidNext > InitialSync+1 {
		last = status.UidNext - 1 - InitialSync
	}

	raw, err := conn.FetchSince(last)
	if err != nil {
		return 0, err
	}

	emails := []domain.Email{}
	for _, r := range raw {
		msg, err := mail.ParseMessage(r.RawMail)
		if err != nil {
			logger.WithFields(logrus.Fields{"uid": r.Uid, "error": err}).Warn("Could not parse mail, skipping")
			continue
		}

		emails = append(emails, domain.Email{
			ID:          EmailID(w.accountID, w.folder, r.Uid),
			UID:         r.Uid,
			AccountID:   w.accountID,
			Folder:      w.folder,
			Sender:      msg.SenderName,
			SenderEmail: msg.SenderEmail,
			Subject:     msg.Subject,
			Snippet:     msg.Snippet,
			Body:        msg.Body,
			ReceivedAt:  msg.Date,
		})
	}
	if len(emails) == 0 {
		logger.Debug("No new mail")
		return 0, nil
	}

	err = w.persistence.SaveEmails(ctx, emails)
	if err != nil {
		return 0, fmt.Errorf("could not save mails: %w", err)
	}

	logger.WithField("new", len(emails)).Info("Stored new mail")
	if w.onArrival != nil {
		w.onArrival(w.accountID)
	}
	return len(emails), nil
}

var ErrNotConfigured = errors.New("imap is not configured")

// Dial returns a Dialer for a TLS server address like imap.example.org:993.
func Dial(server, user, password string) (Dialer, error) {
	if server == "" || user == "" {
		return nil, ErrNotConfigured
	}
	return func() (domain.ImapConnector, error) {
		return NewImapConnection(server, user, password)
	}, nil
}
