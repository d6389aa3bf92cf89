// SPDX-License-Identifier: GPL-3.0-or-later
package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/CrawX/go-imap-triage/ai"
	"github.com/CrawX/go-imap-triage/classifier"
	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/domain/mocks"
	"github.com/CrawX/go-imap-triage/drafting"
	"github.com/CrawX/go-imap-triage/log"
	"github.com/CrawX/go-imap-triage/persistence"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Emit(name string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, domain.Event{Name: name, Payload: payload})
}

func (r *recorder) named(name string) []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	payloads := []interface{}{}
	for _, e := range r.events {
		if e.Name == name {
			payloads = append(payloads, e.Payload)
		}
	}
	return payloads
}

func (r *recorder) progress() []domain.TriageProgress {
	progress := []domain.TriageProgress{}
	for _, p := range r.named(domain.EventTriageProgress) {
		progress = append(progress, p.(domain.TriageProgress))
	}
	return progress
}

type classifierFunc func(ctx context.Context, email *domain.Email) domain.Verdict

func (f classifierFunc) Classify(ctx context.Context, email *domain.Email) domain.Verdict {
	return f(ctx, email)
}

func always(importance domain.Importance, notify bool) classifierFunc {
	return func(_ context.Context, email *domain.Email) domain.Verdict {
		return domain.Verdict{
			Result:  domain.TriageResult{EmailID: email.ID, Importance: importance, Reason: "test", ShouldNotify: notify},
			Outcome: domain.Classified,
		}
	}
}

type drafter struct {
	mu       sync.Mutex
	requests []drafting.DraftRequest
}

func (d *drafter) Propose(_ context.Context, req drafting.DraftRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
}

func newStore(t *testing.T, emails int) *persistence.Persistence {
	t.Helper()
	store, err := persistence.NewPersistence(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	seed := []domain.Email{}
	for i := 1; i <= emails; i++ {
		seed = append(seed, domain.Email{
			ID:          fmt.Sprintf("acc-%d", i),
			UID:         uint32(i),
			AccountID:   "acc",
			Folder:      persistence.InboxFolder,
			Sender:      fmt.Sprintf("Sender %d", i),
			SenderEmail: fmt.Sprintf("s%d@example.org", i),
			Subject:     fmt.Sprintf("Subject %d", i),
			Snippet:     fmt.Sprintf("Snippet %d", i),
		})
	}
	require.NoError(t, store.SaveEmails(context.Background(), seed))
	return store
}

func newScheduler(t *testing.T, store domain.Persistence, c Classifier, d Drafter, events domain.EventSink, configFunc ...ConfigFunc) (*Scheduler, *Supervisor) {
	t.Helper()
	supervisor := NewSupervisor(context.Background())
	t.Cleanup(supervisor.Wait)

	s, err := NewScheduler(store, c, d, events, supervisor, configFunc...)
	require.NoError(t, err)
	return s, supervisor
}

func TestNewSchedulerConfigError(t *testing.T) {
	_, err := NewScheduler(nil, nil, nil, nil, nil, MaxPerRun(0))
	assert.EqualError(t, err, "error applying configuration: MaxPerRun must be at least 1, got 0")
}

func TestRunEmptyBacklog(t *testing.T) {
	events := &recorder{}
	s, _ := newScheduler(t, newStore(t, 0), always(domain.Low, false), nil, events)

	stats, err := s.Run(context.Background(), "acc")
	require.NoError(t, err)
	assert.False(t, stats.Skipped)
	assert.Zero(t, stats.Total)
	assert.Empty(t, events.events)
	assert.False(t, s.Status().Running)
}

func TestRunCap(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, 12)
	events := &recorder{}

	order := []string{}
	classify := func(ctx context.Context, email *domain.Email) domain.Verdict {
		order = append(order, email.ID)
		return always(domain.Medium, false)(ctx, email)
	}
	s, _ := newScheduler(t, store, classifierFunc(classify), nil, events)

	stats, err := s.Run(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Total)
	assert.Equal(t, 10, stats.Processed)
	assert.Empty(t, stats.Failure)
	assert.Equal(t, []string{"acc-12", "acc-11", "acc-10", "acc-9", "acc-8", "acc-7", "acc-6", "acc-5", "acc-4", "acc-3"}, order)

	remaining, err := store.CountUnclassified(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	progress := events.progress()
	require.Len(t, progress, 12)
	assert.Equal(t, domain.TriageProgress{Total: 12, Status: domain.ProgressStarted}, progress[0])
	assert.Equal(t, domain.TriageProgress{Total: 10, Processed: 3, CurrentSubject: "Subject 9", Status: domain.ProgressClassifying}, progress[4])
	assert.Equal(t, domain.TriageProgress{Total: 12, Processed: 10, Status: domain.ProgressDone}, progress[11])
	assert.Len(t, events.named(domain.EventEmailClassified), 10)
	assert.Empty(t, events.named(domain.EventImportantMail))

	stats, err = s.Run(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, []string{"acc-2", "acc-1"}, order[10:])

	status := s.Status()
	assert.False(t, status.Running)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, 2, status.LastRun.Processed)
}

func TestRunMaxPerRunOption(t *testing.T) {
	store := newStore(t, 5)
	s, _ := newScheduler(t, store, always(domain.Low, false), nil, &recorder{}, MaxPerRun(2))

	stats, err := s.Run(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name    string
		outcome domain.Outcome
		reason  string
	}{
		{"unavailable", domain.Unavailable, domain.ReasonUnavailable},
		{"malformed", domain.Malformed, domain.ReasonUnparseable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, 5)
			events := &recorder{}

			calls := 0
			classify := func(ctx context.Context, email *domain.Email) domain.Verdict {
				calls++
				if calls == 2 {
					return domain.Verdict{Result: domain.TriageResult{EmailID: email.ID, Importance: domain.Low, Reason: tc.reason}, Outcome: tc.outcome}
				}
				return always(domain.High, false)(ctx, email)
			}
			s, _ := newScheduler(t, store, classifierFunc(classify), nil, events)

			stats, err := s.Run(ctx, "acc")
			require.NoError(t, err)
			assert.Equal(t, 2, calls)
			assert.Equal(t, 1, stats.Processed)
			assert.Equal(t, tc.name, stats.Failure)

			remaining, err := store.CountUnclassified(ctx, "acc")
			require.NoError(t, err)
			assert.Equal(t, 4, remaining)

			records, err := store.AccountImportance(ctx, "acc")
			require.NoError(t, err)
			assert.Len(t, records, 1)
			assert.Contains(t, records, "acc-5")

			progress := events.progress()
			assert.Equal(t, domain.TriageProgress{Total: 5, Processed: 1, Status: domain.ProgressDone}, progress[len(progress)-1])
			assert.False(t, s.Status().Running)
		})
	}
}

func TestRunImportantMail(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, 3)
	events := &recorder{}
	drafts := &drafter{}

	s, supervisor := newScheduler(t, store, always(domain.High, true), drafts, events)

	stats, err := s.Run(ctx, "acc")
	require.NoError(t, err)
	supervisor.Wait()

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Important)

	records, err := store.AccountImportance(ctx, "acc")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, domain.High, *r.Importance)
	}

	assert.Len(t, events.named(domain.EventEmailClassified), 3)
	important := events.named(domain.EventImportantMail)
	require.Len(t, important, 3)
	assert.Equal(t, domain.ImportantMail{AccountID: "acc", EmailID: "acc-3", Sender: "Sender 3", Subject: "Subject 3", Importance: domain.High}, important[0])

	require.Len(t, drafts.requests, 3)
	sort.Slice(drafts.requests, func(i, j int) bool { return drafts.requests[i].EmailID < drafts.requests[j].EmailID })
	assert.Equal(t, drafting.DraftRequest{EmailID: "acc-1", Sender: "Sender 1", SenderEmail: "s1@example.org", Subject: "Subject 1", Body: "Snippet 1"}, drafts.requests[0])
}

func TestRunWithoutDrafts(t *testing.T) {
	drafts := &drafter{}
	s, supervisor := newScheduler(t, newStore(t, 2), always(domain.High, true), drafts, &recorder{}, WithoutDrafts())

	stats, err := s.Run(context.Background(), "acc")
	require.NoError(t, err)
	supervisor.Wait()

	assert.Equal(t, 2, stats.Important)
	assert.Empty(t, drafts.requests)
}

func TestRunSingleFlight(t *testing.T) {
	store := newStore(t, 3)
	entered := make(chan struct{})
	release := make(chan struct{})

	once := sync.Once{}
	classify := func(ctx context.Context, email *domain.Email) domain.Verdict {
		once.Do(func() {
			close(entered)
			<-release
		})
		return always(domain.Low, false)(ctx, email)
	}
	s, _ := newScheduler(t, store, classifierFunc(classify), nil, &recorder{})

	done := make(chan RunStats)
	go func() {
		stats, err := s.Run(context.Background(), "acc")
		assert.NoError(t, err)
		done <- stats
	}()
	<-entered
	assert.True(t, s.Status().Running)

	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := s.Run(context.Background(), "acc")
			assert.NoError(t, err)
			assert.True(t, stats.Skipped)
			assert.Equal(t, ReasonRunning, stats.Reason)
		}()
	}
	wg.Wait()

	close(release)
	stats := <-done
	assert.False(t, stats.Skipped)
	assert.Equal(t, 3, stats.Processed)
	assert.False(t, s.Status().Running)
}

func TestStop(t *testing.T) {
	s, _ := newScheduler(t, newStore(t, 1), always(domain.Low, false), nil, &recorder{})
	s.Stop()

	stats, err := s.Run(context.Background(), "acc")
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
	assert.Equal(t, ReasonStopped, stats.Reason)
	assert.True(t, s.Status().Stopped)
}

func TestRunSaveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockPersistence(ctrl)
	events := &recorder{}
	email := &domain.Email{ID: "e1", Subject: "Hello"}

	gomock.InOrder(
		store.EXPECT().PurgeTransientTriage(gomock.Any()).Return(int64(0), nil),
		store.EXPECT().CountUnclassified(gomock.Any(), "acc").Return(1, nil),
		store.EXPECT().NextUnclassified(gomock.Any(), "acc").Return(email, nil),
		store.EXPECT().SaveTriageRecord(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
	)

	s, _ := newScheduler(t, store, always(domain.Low, false), nil, events)
	stats, err := s.Run(context.Background(), "acc")
	assert.EqualError(t, err, "could not save classification for e1: disk full")
	assert.Zero(t, stats.Processed)
	assert.False(t, s.Status().Running)

	progress := events.progress()
	require.Len(t, progress, 3)
	assert.Equal(t, domain.ProgressDone, progress[2].Status)
}

type emptyContext struct{}

func (emptyContext) VIPContext(context.Context) string    { return "" }
func (emptyContext) SkillsContext(context.Context) string { return "" }

func TestRunRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	const interval = 40 * time.Millisecond
	completer := mocks.NewMockCompleter(ctrl)

	starts := []time.Time{}
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(func(context.Context, domain.CompletionRequest) (string, error) {
		starts = append(starts, time.Now())
		return `{"importance":"medium","reason":"ok","should_notify":false}`, nil
	})

	c := classifier.NewClassifier(ai.Throttled(completer, interval), emptyContext{})
	s, _ := newScheduler(t, newStore(t, 3), c, nil, &recorder{})

	stats, err := s.Run(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), interval-time.Millisecond)
	}
}

func TestSupervisor(t *testing.T) {
	supervisor := NewSupervisor(context.Background())

	mu := sync.Mutex{}
	finished := 0
	for i := 0; i < 5; i++ {
		i := i
		supervisor.Go(fmt.Sprintf("task %d", i), func(ctx context.Context) error {
			switch i {
			case 1:
				panic("boom")
			case 2:
				return errors.New("failed")
			}
			mu.Lock()
			finished++
			mu.Unlock()
			return nil
		})
	}
	supervisor.Wait()
	assert.Equal(t, 3, finished)

	// still usable after failures
	ran := false
	supervisor.Go("after", func(ctx context.Context) error {
		ran = true
		return nil
	})
	supervisor.Wait()
	assert.True(t, ran)
}

func TestSupervisorNestedTasks(t *testing.T) {
	supervisor := NewSupervisor(context.Background())

	done := make(chan struct{})
	supervisor.Go("outer", func(ctx context.Context) error {
		inner := make(chan struct{})
		for i := 0; i < 3; i++ {
			i := i
			supervisor.Go(fmt.Sprintf("inner %d", i), func(ctx context.Context) error {
				if i == 2 {
					close(inner)
				}
				return nil
			})
		}
		// the outer task keeps running while its children start
		<-inner
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested tasks did not start while the outer task was running")
	}
	supervisor.Wait()
}
