// forge/pkg/session/preview.go

package session

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"threathawk/forge/pkg/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// previewWriteWait bounds each websocket write so a stalled client cannot hold
// the hub lock.
var previewWriteWait = time.Second

// PreviewHub pushes previews to websocket clients. A client receives the
// latest preview of every kind on connect, then each new one as it is
// published. Clients that fail a write are dropped.
type PreviewHub struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	latest       map[string]Preview
}

func NewPreviewHub() *PreviewHub {
	return &PreviewHub{
		clients: make(map[*websocket.Conn]bool),
		latest:  make(map[string]Preview),
	}
}

func (h *PreviewHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error upgrading to WebSocket")
		return
	}
	defer conn.Close()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Preview client connected")

	h.clientsMutex.Lock()
	kinds := make([]string, 0, len(h.latest))
	for k := range h.latest {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		if err := writePreview(conn, h.latest[k]); err != nil {
			h.clientsMutex.Unlock()
			return
		}
	}
	h.clients[conn] = true
	h.clientsMutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.clientsMutex.Lock()
	delete(h.clients, conn)
	h.clientsMutex.Unlock()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Preview client disconnected")
}

// Publish implements Renderer.
func (h *PreviewHub) Publish(p Preview) {
	message, err := json.Marshal(p)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error marshaling preview")
		return
	}

	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.latest[p.Kind] = p
	for client := range h.clients {
		if err := writeMessage(client, message); err != nil {
			logging.Logger.Debug().Err(err).Msg("Dropping preview client")
			client.Close()
			delete(h.clients, client)
		}
	}
}

// Latest returns the last preview published for kind.
func (h *PreviewHub) Latest(kind string) (Preview, bool) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	p, ok := h.latest[kind]
	return p, ok
}

func (h *PreviewHub) ClientCount() int {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()
	return len(h.clients)
}

func writePreview(conn *websocket.Conn, p Preview) error {
	message, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return writeMessage(conn, message)
}

func writeMessage(conn *websocket.Conn, message []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(previewWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, message)
}
