// SPDX-License-Identifier: GPL-3.0-or-later
package learner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
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

func newStore(t *testing.T) *persistence.Persistence {
	t.Helper()
	p, err := persistence.NewPersistence(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestRecordActionPromotesOnce(t *testing.T) {
	for _, action := range []domain.UserAction{domain.Replied, domain.Starred} {
		t.Run(string(action), func(t *testing.T) {
			store := newStore(t)
			le := NewLearner(store)
			ctx := context.Background()

			require.NoError(t, le.RecordAction(ctx, "e1", action, "Boss@Example.org"))
			require.NoError(t, le.RecordAction(ctx, "e2", action, "boss@example.org"))

			vips, err := le.ListVIPs(ctx)
			require.NoError(t, err)
			require.Len(t, vips, 1)
			assert.Equal(t, "boss@example.org", vips[0].SenderEmail)
			assert.Equal(t, domain.VIPAutoLearned, vips[0].Reason)

			actions, err := store.CountActions(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, actions)
		})
	}
}

func TestRecordActionWithoutPromotion(t *testing.T) {
	store := newStore(t)
	le := NewLearner(store)
	ctx := context.Background()

	for _, action := range []domain.UserAction{domain.Opened, domain.Deleted, domain.Ignored} {
		require.NoError(t, le.RecordAction(ctx, "e1", action, "news@example.org"))
	}
	// no sender, nothing to promote
	require.NoError(t, le.RecordAction(ctx, "e2", domain.Replied, ""))

	vips, err := le.ListVIPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, vips)
	assert.Equal(t, "", le.VIPContext(ctx))
}

func TestRecordActionInvalid(t *testing.T) {
	le := NewLearner(newStore(t))

	assert.ErrorIs(t, le.RecordAction(context.Background(), "e1", domain.UserAction("archived"), "a@example.org"), domain.ErrInvalidInput)
	assert.ErrorIs(t, le.RecordAction(context.Background(), " ", domain.Opened, "a@example.org"), domain.ErrInvalidInput)
}

func TestRecordActionSwallowsStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockPersistence(ctrl)
	store.EXPECT().SaveTriageRecord(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	store.EXPECT().AddVIP(gomock.Any(), gomock.Any()).Return(false, errors.New("disk full"))

	assert.NoError(t, NewLearner(store).RecordAction(context.Background(), "e1", domain.Replied, "a@example.org"))
}

func TestAddVIP(t *testing.T) {
	le := NewLearner(newStore(t))
	ctx := context.Background()

	require.NoError(t, le.AddVIP(ctx, "ceo@example.org"))
	require.NoError(t, le.AddVIP(ctx, "ceo@example.org"))
	assert.ErrorIs(t, le.AddVIP(ctx, "nobody"), domain.ErrInvalidInput)

	vips, err := le.ListVIPs(ctx)
	require.NoError(t, err)
	require.Len(t, vips, 1)
	assert.Equal(t, domain.VIPManual, vips[0].Reason)
}

func TestAddVIPSurfacesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockPersistence(ctrl)
	store.EXPECT().AddVIP(gomock.Any(), gomock.Any()).Return(false, errors.New("disk full"))

	assert.EqualError(t, NewLearner(store).AddVIP(context.Background(), "a@example.org"), "could not add vip sender: disk full")
}

func TestVIPContextLimit(t *testing.T) {
	le := NewLearner(newStore(t))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, le.AddVIP(ctx, fmt.Sprintf("vip%02d@example.org", i)))
	}

	vipContext := le.VIPContext(ctx)
	assert.Len(t, strings.Split(vipContext, "\n"), VIPContextLimit)
	assert.Contains(t, vipContext, "- vip00@example.org\n- vip01@example.org")
}

func TestSkillsContext(t *testing.T) {
	store := newStore(t)
	le := NewLearner(store)
	ctx := context.Background()

	assert.Equal(t, "", le.SkillsContext(ctx))

	require.NoError(t, store.SaveSkill(ctx, &domain.Skill{Type: domain.SenderRule, Description: "boss is high", Rule: json.RawMessage(`{"sender":"boss"}`), Confidence: 0.8, Active: true}))
	require.NoError(t, store.SaveSkill(ctx, &domain.Skill{Type: domain.SenderRule, Description: "weak", Rule: json.RawMessage(`{"x":1}`), Confidence: 0.4, Active: true}))
	require.NoError(t, store.SaveSkill(ctx, &domain.Skill{Type: domain.SenderRule, Description: "off", Rule: json.RawMessage(`{"y":1}`), Confidence: 0.9, Active: false}))

	assert.Equal(t, `- boss is high (confidence: 80%): {"sender":"boss"}`, le.SkillsContext(ctx))
}
