package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/roster-socket/internal/client"
	"github.com/DoyleJ11/roster-socket/internal/hub"
	"github.com/DoyleJ11/roster-socket/internal/page"
	"github.com/DoyleJ11/roster-socket/internal/store"
	"github.com/DoyleJ11/roster-socket/internal/view"
	wire "github.com/DoyleJ11/roster-socket/pkg/types"
)

type testServer struct {
	srv      *httptest.Server
	hub      *hub.Hub
	messages *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	messages := store.NewMemory(16)
	h := hub.NewHub(ctx, messages, nil)
	srv := httptest.NewServer(SetupRoutes(Deps{Hub: h, Messages: messages}))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, hub: h, messages: messages}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// openPage is one browser tab: a page loaded onto a fresh client.
func openPage(t *testing.T, ctx context.Context, url string) *page.Page {
	t.Helper()
	p := page.New(view.NewList(view.ClientListID))
	c := client.New(url)
	require.NoError(t, p.Load(c))
	go func() { _ = c.Run(ctx) }()
	return p
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	status, _ := get(t, ts.srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
}

func TestClients_EmptyRoster(t *testing.T) {
	ts := newTestServer(t)
	status, body := get(t, ts.srv.URL+"/clients")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"version":0,"clients":[]}`, body)
}

func TestIndex_RendersClientList(t *testing.T) {
	ts := newTestServer(t)
	status, body := get(t, ts.srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<ul id="client-list"></ul>`)
}

func TestMessages_BadLimit(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"?limit=0", "?limit=abc", "?limit=-1"} {
		status, _ := get(t, ts.srv.URL+"/messages"+q)
		assert.Equal(t, http.StatusBadRequest, status, q)
	}
}

func TestMessages_Empty(t *testing.T) {
	ts := newTestServer(t)
	status, body := get(t, ts.srv.URL+"/messages")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}

func TestPageLoad_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := openPage(t, ctx, ts.wsURL())

	require.Eventually(t, func() bool { return first.SessionID() != "" }, 3*time.Second, 10*time.Millisecond)
	firstID := first.SessionID()

	require.Eventually(t, func() bool {
		items := first.List().Items()
		return len(items) == 1 && items[0] == "Client 0: "+firstID
	}, 3*time.Second, 10*time.Millisecond)

	// the greeting arrives exactly once
	require.Eventually(t, func() bool {
		msgs, err := ts.messages.Recent(context.Background(), 0)
		return err == nil && len(msgs) == 1
	}, 3*time.Second, 10*time.Millisecond)
	msgs, err := ts.messages.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, firstID, msgs[0].ClientID)
	assert.Equal(t, page.Greeting, msgs[0].Body)

	second := openPage(t, ctx, ts.wsURL())
	require.Eventually(t, func() bool { return second.SessionID() != "" }, 3*time.Second, 10*time.Millisecond)
	secondID := second.SessionID()
	assert.NotEqual(t, firstID, secondID)

	want := []string{"Client 0: " + firstID, "Client 1: " + secondID}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, first.List().Items()) &&
			assert.ObjectsAreEqual(want, second.List().Items())
	}, 3*time.Second, 10*time.Millisecond)

	_, body := get(t, ts.srv.URL+"/clients")
	var snap wire.RosterSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	assert.Equal(t, []string{firstID, secondID}, snap.Clients)

	_, index := get(t, ts.srv.URL+"/")
	assert.Contains(t, index, "<li>Client 1: "+secondID+"</li>")
}
