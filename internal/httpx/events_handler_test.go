package httpx

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fornalha/pizzaria-orders/internal/hub"
	"github.com/fornalha/pizzaria-orders/internal/metrics"
	"github.com/fornalha/pizzaria-orders/internal/orders"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStreamServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.New(32, nil)
	eh := &EventsHandler{Hub: h, Metrics: metrics.New(prometheus.NewRegistry()), Log: discardLogger()}
	r := NewRouter(nil)
	eh.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, h
}

func waitForSubscriber(t *testing.T, h *hub.Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamDeliversEventFrames(t *testing.T) {
	srv, h := newStreamServer(t)

	resp, err := http.Get(srv.URL + "/events?subscriber_id=staff-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	waitForSubscriber(t, h)
	h.Publish(orders.Event{ID: "e1", Type: orders.EventNewOrder, OrderID: "o1", OccurredAt: time.Now()})
	h.PingAll()
	h.Publish(orders.Event{ID: "e2", Type: orders.EventStatusChanged, OrderID: "o1", OccurredAt: time.Now()})

	sc := bufio.NewScanner(resp.Body)
	var types []string
	for len(types) < 3 && sc.Scan() {
		var frame struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &frame))
		types = append(types, frame.Type)
	}
	assert.Equal(t, []string{orders.EventNewOrder, "ping", orders.EventStatusChanged}, types)
}

func TestStreamDisconnectDeregistersPromptly(t *testing.T) {
	srv, h := newStreamServer(t)

	resp, err := http.Get(srv.URL + "/events?subscriber_id=staff-1")
	require.NoError(t, err)
	waitForSubscriber(t, h)
	require.Equal(t, 1, h.Len())

	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not deregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamTwoSubscribersBothReceive(t *testing.T) {
	srv, h := newStreamServer(t)

	readOne := func(resp *http.Response) string {
		sc := bufio.NewScanner(resp.Body)
		require.True(t, sc.Scan())
		var frame struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &frame))
		return frame.Type
	}

	a, err := http.Get(srv.URL + "/events?subscriber_id=a")
	require.NoError(t, err)
	defer a.Body.Close()
	b, err := http.Get(srv.URL + "/events?subscriber_id=b")
	require.NoError(t, err)
	defer b.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("subscribers never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.Publish(orders.Event{ID: "e1", Type: orders.EventStatusChanged, OrderID: "o1", OccurredAt: time.Now()})

	assert.Equal(t, orders.EventStatusChanged, readOne(a))
	assert.Equal(t, orders.EventStatusChanged, readOne(b))
}
