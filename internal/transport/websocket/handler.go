package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adityanagar10/buzzline/backend/internal/service/session"
	"github.com/adityanagar10/buzzline/backend/pkg/httputil"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

func closeDeadline() time.Time {
	return time.Now().Add(5 * time.Second)
}

// Handler upgrades authenticated presence connections. The access check
// is the same gate as for HTTP requests, so a revoked token cannot open
// a socket.
type Handler struct {
	Verifier *session.AccessVerifier
	Registry *Registry
	Upgrader websocket.Upgrader
}

func NewHandler(verifier *session.AccessVerifier, registry *Registry, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		Verifier: verifier,
		Registry: registry,
		Upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandlePresence authenticates the request, upgrades it, and keeps the
// connection registered until it drops.
func (h *Handler) HandlePresence(w http.ResponseWriter, r *http.Request) {
	token, err := httputil.BearerFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.Verifier.VerifyAccess(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	identityID, err := claims.IdentityID()
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.Registry.Add(identityID, conn)
	go h.runConnection(identityID, conn)
}

// runConnection owns the read loop and keep-alive for one socket.
func (h *Handler) runConnection(identityID int64, conn *websocket.Conn) {
	defer func() {
		h.Registry.Remove(identityID, conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, closeDeadline()); err != nil {
					return
				}
			}
		}
	}()

	// Presence sockets carry no client messages today; the read loop
	// only services control frames and detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
