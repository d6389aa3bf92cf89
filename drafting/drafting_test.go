// SPDX-License-Identifier: GPL-3.0-or-later
package drafting

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/domain/mocks"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	os.Exit(m.Run())
}

func TestDraftPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	completer := mocks.NewMockCompleter(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req domain.CompletionRequest) (string, error) {
		assert.Equal(t, systemPrompt, req.SystemPrompt)
		assert.Contains(t, req.Prompt, "From: Jane Boss\nSubject: Contract\nContent: "+strings.Repeat("ü", BodyLimit)+"\n")
		assert.NotContains(t, req.Prompt, strings.Repeat("ü", BodyLimit+1))
		assert.Contains(t, req.Prompt, "same language")
		return "  Thanks, I will sign today.\n", nil
	})

	body, err := NewDrafter(completer, nil).Draft(context.Background(), DraftRequest{
		Sender:  "Jane Boss",
		Subject: "Contract",
		Body:    strings.Repeat("ü", BodyLimit+100),
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks, I will sign today.", body)
}

func TestDraftNeedsContent(t *testing.T) {
	_, err := NewDrafter(nil, nil).Draft(context.Background(), DraftRequest{EmailID: "e1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProposeEmitsDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	completer := mocks.NewMockCompleter(ctrl)
	events := mocks.NewMockEventSink(ctrl)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("See you at 3.", nil)
	events.EXPECT().Emit(domain.EventProactiveDraft, domain.ProactiveDraft{
		EmailID: "e1",
		To:      "jane@example.org",
		Subject: "Re: Meeting",
		Body:    "See you at 3.",
		Sender:  "Jane Boss",
	})

	NewDrafter(completer, events).Propose(context.Background(), DraftRequest{
		EmailID:     "e1",
		Sender:      "Jane Boss",
		SenderEmail: "jane@example.org",
		Subject:     "Meeting",
		Body:        "Can we meet at 3?",
	})
}

func TestProposeFailureIsSilent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	completer := mocks.NewMockCompleter(ctrl)
	events := mocks.NewMockEventSink(ctrl)

	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))
	events.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(0)

	NewDrafter(completer, events).Propose(context.Background(), DraftRequest{EmailID: "e1", Subject: "Meeting"})
}
