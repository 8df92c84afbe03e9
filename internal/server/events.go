package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/observability"
)

const streamWriteTimeout = 5 * time.Second

type streamMessage struct {
	WidgetID string        `json:"widgetId"`
	State    cart.Snapshot `json:"state"`
}

// handleEvents streams the caller's controller snapshots as JSON text frames,
// starting with the current one.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	wd, b, ok := s.lookupCart(w, r)
	if !ok {
		return
	}
	logger := observability.FromContext(r.Context())
	lang := s.lang(r)
	k := s.key(r, wd.ID, lang)
	ctrl, detach := s.controllers.acquireAttached(k, wd, b, s.store.Version())
	defer detach()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	if s.metrics != nil {
		s.metrics.StreamsActive.Inc()
		defer s.metrics.StreamsActive.Dec()
	}

	// Only the newest snapshot matters, so a slow reader skips states
	// instead of blocking the controller.
	updates := make(chan cart.Snapshot, 1)
	unsubscribe := ctrl.Subscribe(func(snap cart.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())
	if err := s.send(ctx, conn, wd.ID, ctrl.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			if err := s.send(ctx, conn, wd.ID, snap); err != nil {
				if websocket.CloseStatus(err) == -1 {
					logger.Debug("state stream write failed", zap.Error(err))
				}
				return
			}
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, widgetID string, snap cart.Snapshot) error {
	payload, err := json.Marshal(streamMessage{WidgetID: widgetID, State: snap})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, payload)
}
