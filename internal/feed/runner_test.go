package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// scriptedFeed emits a fixed sequence of snapshots then blocks until
// cancellation.
type scriptedFeed struct {
	frames []deal.Deal
}

func (s *scriptedFeed) Run(ctx context.Context, snapshots chan<- deal.Deal) error {
	for _, d := range s.frames {
		if err := send(ctx, snapshots, d); err != nil {
			return nil
		}
	}

	<-ctx.Done()

	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	applied []deal.Deal
}

func (r *recordingSink) ApplySnapshot(incoming deal.Deal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applied = append(r.applied, incoming)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.applied)
}

func TestRunner_AppliesEachSnapshotInOrder(t *testing.T) {
	first := feedTestDeal()
	second := feedTestDeal()
	second.Name = "Project Alder II"

	sink := &recordingSink{}
	r := NewRunner(&scriptedFeed{frames: []deal.Deal{first, second}}, sink, testLogger(t))

	var notified []string
	var mu sync.Mutex

	r.OnApply = func(d deal.Deal) {
		mu.Lock()
		defer mu.Unlock()

		notified = append(notified, d.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return sink.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "Project Alder", sink.applied[0].Name)
	assert.Equal(t, "Project Alder II", sink.applied[1].Name)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Project Alder", "Project Alder II"}, notified)
}

func TestRunner_StopsWhenFeedFinishes(t *testing.T) {
	sink := &recordingSink{}
	r := NewRunner(&scriptedFeed{}, sink, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- r.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}

	assert.Zero(t, sink.count())
}
