package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// snapshotServer accepts one websocket connection and pushes the given
// frames as text messages, then holds the connection open.
func snapshotServer(t *testing.T, frames [][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		for _, frame := range frames {
			if err := conn.Write(r.Context(), websocket.MessageText, frame); err != nil {
				return
			}
		}

		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + srv.URL[len("http"):]
}

func TestWebsocketFeed_EmitsPushedFrames(t *testing.T) {
	d := feedTestDeal()
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	srv := snapshotServer(t, [][]byte{raw})

	f := NewWebsocketFeed(wsURL(srv), "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 4)
	done := make(chan error, 1)

	go func() { done <- f.Run(ctx, snapshots) }()

	select {
	case got := <-snapshots:
		assert.Equal(t, "deal-1", got.ID)
		assert.Equal(t, "Project Alder", got.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("pushed frame not emitted")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWebsocketFeed_SkipsMalformedAndForeignFrames(t *testing.T) {
	mine := feedTestDeal()
	mineRaw, err := json.Marshal(mine)
	require.NoError(t, err)

	other := feedTestDeal()
	other.ID = "deal-2"
	otherRaw, err := json.Marshal(other)
	require.NoError(t, err)

	srv := snapshotServer(t, [][]byte{[]byte("{not json"), otherRaw, mineRaw})

	f := NewWebsocketFeed(wsURL(srv), "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan deal.Deal, 4)

	go func() { _ = f.Run(ctx, snapshots) }()

	select {
	case got := <-snapshots:
		// Only the matching frame comes through.
		assert.Equal(t, "deal-1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("matching frame not emitted")
	}

	select {
	case got := <-snapshots:
		t.Fatalf("unexpected extra snapshot: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWebsocketFeed_DialFailureStopsOnCancel(t *testing.T) {
	f := NewWebsocketFeed("ws://127.0.0.1:1/nope", "deal-1", testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() { done <- f.Run(ctx, make(chan deal.Deal, 1)) }()

	// The first dial fails immediately and the feed enters backoff;
	// cancellation must unwind it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}
