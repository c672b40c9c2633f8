// forge/pkg/session/preview_test.go

package session

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threathawk/forge/pkg/sysmon"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readPreview(t *testing.T, conn *websocket.Conn) Preview {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var p Preview
	require.NoError(t, conn.ReadJSON(&p))
	return p
}

func waitForClients(t *testing.T, hub *PreviewHub, n int) {
	assert.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestNewPreviewHub(t *testing.T) {
	hub := NewPreviewHub()
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.latest)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPreviewHubSendsLatestOnConnect(t *testing.T) {
	hub := NewPreviewHub()
	s := NewSysmonSession(sysmon.DefaultRuleGroup(), hub)

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	p := readPreview(t, conn)
	assert.Equal(t, KindSysmon, p.Kind)
	assert.Equal(t, s.Text(), p.Text)
}

func TestPreviewHubBroadcastsRenders(t *testing.T) {
	hub := NewPreviewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	c1 := dial(t, server)
	defer c1.Close()
	c2 := dial(t, server)
	defer c2.Close()
	waitForClients(t, hub, 2)

	s := NewSysmonSession(sysmon.DefaultRuleGroup(), hub)
	for _, c := range []*websocket.Conn{c1, c2} {
		p := readPreview(t, c)
		assert.Equal(t, s.Text(), p.Text)
	}

	_, ok := s.Import("not a rule")
	require.False(t, ok)
	for _, c := range []*websocket.Conn{c1, c2} {
		p := readPreview(t, c)
		assert.Equal(t, ImportFailedNotice, p.Notice)
		assert.Contains(t, p.Text, "not a rule")
	}

	latest, ok := hub.Latest(KindSysmon)
	require.True(t, ok)
	assert.Equal(t, ImportFailedNotice, latest.Notice)
}

func TestPreviewHubDropsClosedClients(t *testing.T) {
	hub := NewPreviewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	hub.Publish(Preview{Kind: KindYaraX, Text: "rule x {}"})
	_, ok := hub.Latest(KindYaraX)
	assert.True(t, ok)
}

func TestPreviewHubDropsStalledClient(t *testing.T) {
	defer func(d time.Duration) { previewWriteWait = d }(previewWriteWait)
	previewWriteWait = 50 * time.Millisecond

	hub := NewPreviewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	// Never read from this connection so the socket buffers fill up.
	stalled := dial(t, server)
	defer stalled.Close()
	waitForClients(t, hub, 1)

	big := Preview{Kind: KindSysmon, Text: strings.Repeat("x", 1<<20)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			hub.Publish(big)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publish blocked on a client that does not read")
	}
	assert.Equal(t, 0, hub.ClientCount())

	latest, ok := hub.Latest(KindSysmon)
	require.True(t, ok)
	assert.Len(t, latest.Text, 1<<20)
}

func TestPreviewHubRejectsPlainHTTP(t *testing.T) {
	hub := NewPreviewHub()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/preview", nil)

	hub.ServeHTTP(rr, req)
	assert.Equal(t, 400, rr.Code)
}
