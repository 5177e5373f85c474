package server

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/vitalboard/internal/store"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) store.View {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var v store.View
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return v
}

func TestHandleWS_SendsSnapshotThenUpdates(t *testing.T) {
	views := store.NewMemoryViews()
	views.Update(testView("builds_histogram"))
	srv := NewServer(views, nil, 0, nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)

	if v := readView(t, conn); v.ID != "builds_histogram" {
		t.Errorf("first view = %q, want snapshot", v.ID)
	}

	// wait for the handler to subscribe
	deadline := time.Now().Add(time.Second)
	for views.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	views.Update(store.View{ID: "vitals_vitals-summary", Scope: "vitals_", Kind: "vitals-summary", Loading: true})

	v := readView(t, conn)
	if v.ID != "vitals_vitals-summary" || !v.Loading {
		t.Errorf("update = %+v", v)
	}
}

func TestHandleWS_ClientCloseUnsubscribes(t *testing.T) {
	views := store.NewMemoryViews()
	srv := NewServer(views, nil, 0, nil, "", testLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	deadline := time.Now().Add(time.Second)
	for views.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for views.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after client closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleWS_ServerShutdownClosesStream(t *testing.T) {
	views := store.NewMemoryViews()
	srv := NewServer(views, nil, 0, nil, "", testLogger())

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()
	handler := srv.Handler()
	ts := httptest.NewUnstartedServer(handler)
	ts.Config.BaseContext = func(_ net.Listener) context.Context { return serverCtx }
	ts.Start()
	defer ts.Close()

	conn := dialWS(t, ts)
	deadline := time.Now().Add(time.Second)
	for views.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	serverCancel()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
}
