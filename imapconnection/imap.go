// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

const (
	// servers drop idle connections after 30 minutes
	idleLogoutTimeout = 25 * time.Minute
	idlePollInterval  = time.Minute
	updateBuffer      = 64
)

type ImapConnection struct {
	connection *client.Client
	updates    chan client.Update

	server string

	selectedFolder string

	l *logrus.Logger
}

func NewImapConnection(server string, user string, password string) (*ImapConnection, error) {
	imapClient, err := client.DialTLS(server, nil)
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w", err)
	}

	err = imapClient.Login(user, password)
	if err != nil {
		_ = imapClient.Logout()
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}

	updates := make(chan client.Update, updateBuffer)
	imapClient.Updates = updates

	conn := &ImapConnection{
		connection: imapClient,
		updates:    updates,
		server:     server,
		l:          log.Logger(log.LOG_IMAP),
	}
	conn.l.WithFields(logrus.Fields{"server": server}).Debug("Logged in to server")

	return conn, nil
}

func (ic *ImapConnection) Select(folder string) (*domain.MailboxStatus, error) {
	m, err := ic.connection.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("could not select folder: %w", err)
	}

	ic.selectedFolder = folder
	return &domain.MailboxStatus{
		UidValidity: m.UidValidity,
		UidNext:     m.UidNext,
		Messages:    m.Messages,
	}, nil
}

// FetchSince returns all mails with a UID above uid.
func (ic *ImapConnection) FetchSince(uid uint32) ([]*domain.RawImapMail, error) {
	seqset := &imap.SeqSet{}
	seqset.AddRange(uid+1, 0)

	messages := make(chan *imap.Message, 10)
	fullBodySection := &imap.BodySectionName{
		Peek: true,
	}

	fetchItems := []imap.FetchItem{imap.FetchUid, fullBodySection.FetchItem()}
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	mails := []*domain.RawImapMail{}
	var readErr error
	for msg := range messages {
		// "n:*" always matches the last mail, even if its UID is below n
		if msg.Uid <= uid || readErr != nil {
			continue
		}

		r := msg.GetBody(fullBodySection)
		if r == nil {
			ic.l.WithFields(logrus.Fields{"folder": ic.selectedFolder, "uid": msg.Uid}).Warn("Server returned no body, skipping")
			continue
		}
		rawBody, err := io.ReadAll(r)
		if err != nil {
			readErr = fmt.Errorf("could not read mail body: %w", err)
			continue
		}

		mails = append(mails, &domain.RawImapMail{Uid: msg.Uid, RawMail: rawBody})
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mails: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return mails, nil
}

// WaitForUpdate idles until the selected mailbox changes, the server ends the
// idle or ctx is done.
func (ic *ImapConnection) WaitForUpdate(ctx context.Context) error {
	drain(ic.updates)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.Idle(stop, &client.IdleOptions{
			LogoutTimeout: idleLogoutTimeout,
			PollInterval:  idlePollInterval,
		})
	}()

	stopped := false
	stopIdle := func() {
		if !stopped {
			close(stop)
			stopped = true
		}
	}

	for {
		select {
		case update := <-ic.updates:
			if mu, ok := update.(*client.MailboxUpdate); ok {
				ic.l.WithFields(logrus.Fields{"folder": ic.selectedFolder, "messages": mu.Mailbox.Messages}).Debug("Mailbox changed")
				stopIdle()
			}
		case <-ctx.Done():
			stopIdle()
		case err := <-done:
			if err != nil {
				return fmt.Errorf("idle failed: %w", err)
			}
			return ctx.Err()
		}
	}
}

func drain(updates chan client.Update) {
	for {
		select {
		case <-updates:
		default:
			return
		}
	}
}

func (ic *ImapConnection) Close() error {
	return ic.connection.Logout()
}
