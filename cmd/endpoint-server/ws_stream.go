package main

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// wsReadLimit is the maximum message size for websocket reads.
const wsReadLimit = 1 << 20 // 1 MiB

// wsBufferSize is the read/write buffer size for websocket connections.
const wsBufferSize = 4096

// wsWriteTimeout bounds each frame write.
const wsWriteTimeout = 10 * time.Second

// maxCloseReason is the largest close reason a control frame can carry.
const maxCloseReason = 123

// newUpgrader returns an upgrader admitting the configured browser origins.
// CORS does not cover websocket handshakes, so the origin is checked here.
// Requests without an Origin header come from non-browser clients and are
// accepted; "*" admits every origin.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return slices.ContainsFunc(allowedOrigins, func(allowed string) bool {
				return allowed == "*" || strings.EqualFold(allowed, origin)
			})
		},
	}
}

// wsSink writes status and error frames to one websocket connection.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(_ context.Context, statuses []sagemaker.EndpointStatus) error {
	return s.write(statuses)
}

func (s *wsSink) SendError(_ context.Context, detail string) error {
	return s.write(errorResponse{Detail: detail})
}

func (s *wsSink) write(v any) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// handleStatusStream upgrades the connection, reads one {endpoint_name}
// message, then streams the deployment status until it settles.
func (s *server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(wsReadLimit)
	sink := &wsSink{conn: conn}

	var req endpointRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeWSError(conn, sink, "invalid JSON")
		return
	}
	if req.EndpointName == "" {
		s.writeWSError(conn, sink, "endpoint_name is required")
		return
	}

	// A hijacked request's context is not cancelled when the peer leaves, so
	// watch the read side for the close.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log := s.log.With("endpoint", req.EndpointName, "request_id", requestIDFromContext(r.Context()))
	log.Info("status stream started")

	err = s.streamer.Stream(ctx, req.EndpointName, sink)
	switch {
	case err == nil:
		log.Info("status stream finished")
		closeWS(conn, websocket.CloseNormalClosure, "")
	case errors.Is(err, sagemaker.ErrProbeBudgetExhausted):
		log.Info("status stream gave up", "error", err)
		closeWS(conn, websocket.CloseNormalClosure, err.Error())
	case errors.Is(err, context.Canceled):
		log.Info("status stream client left")
	default:
		log.Error("status stream failed", "error", err)
		closeWS(conn, websocket.CloseInternalServerErr, err.Error())
	}
}

func (s *server) writeWSError(conn *websocket.Conn, sink *wsSink, detail string) {
	if err := sink.SendError(context.Background(), detail); err != nil {
		s.log.Error("websocket write error", "error", err)
	}
	closeWS(conn, websocket.ClosePolicyViolation, detail)
}

func closeWS(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
