package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/present/rest/middleware"
	"github.com/storynest/storynest/internal/present/rest/presenter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const pingInterval = 30 * time.Second

type socketMessage struct {
	Type string `json:"type"`
}

// handleRealtime streams the story events of the requester's family so a
// dashboard knows when to re-fetch. Clients may send {"type":"h"} heartbeats.
func (h *Handler) handleRealtime(c echo.Context) error {
	requester := middleware.RequesterID(c)
	profile, err := h.profile.Get(c.Request().Context(), requester)
	if err != nil {
		return presenter.Error(c, err)
	}
	if profile.FamilyID == "" {
		return presenter.Error(c, domain.ErrForbidden)
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.signal.Subscribe(ctx, profile.FamilyID)
	if err != nil {
		return presenter.Error(c, domain.Unavailable(err))
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}
	defer ws.Close()

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			var msg socketMessage
			err := ws.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.DebugContext(
						ctx, "WebSocket closed",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}
			switch msg.Type {
			case "h": // heartbeat
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", msg.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-quit:
			return nil
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return nil
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := ws.WriteJSON(event); err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
