// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "context"

//go:generate mockgen -destination=mocks/imap.go -package=mocks . ImapConnector
type RawImapMail struct {
	Uid     uint32
	RawMail []byte
}

type MailboxStatus struct {
	UidValidity uint32
	UidNext     uint32
	Messages    uint32
}

type ImapConnector interface {
	Select(folder string) (*MailboxStatus, error)
	FetchSince(uid uint32) ([]*RawImapMail, error)
	WaitForUpdate(ctx context.Context) error

	Close() error
}
