package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"portal-service/internal/identity"
	"portal-service/internal/models"
	"portal-service/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	defaultSendBuffer = 256
	inboundBuffer     = 64
)

// Dispatcher handles one decoded client event. Calls for a connection are
// made sequentially in arrival order.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, user models.User, frame models.InboundFrame)
}

// Options tunes per-connection behaviour.
type Options struct {
	EventsPerSecond float64
	EventBurst      int
	SendBuffer      int
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub        *Hub
	resolver   identity.Resolver
	dispatcher Dispatcher
	opts       Options
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, resolver identity.Resolver, dispatcher Dispatcher, opts Options) *Handler {
	if opts.EventsPerSecond <= 0 {
		opts.EventsPerSecond = 10
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 20
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Handler{hub: hub, resolver: resolver, dispatcher: dispatcher, opts: opts}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle authenticates the request, upgrades it and serves the connection
// until it closes.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("portal-service/ws").Start(c.Request.Context(), "ws.handshake", trace.WithSpanKind(trace.SpanKindServer))
	c.Request = c.Request.WithContext(ctx)

	user, err := h.resolver.Resolve(ctx, observability.SessionTokenFromRequest(c.Request))
	if err != nil {
		span.End()
		if !errors.Is(err, identity.ErrUnauthenticated) {
			log.Printf("websocket session resolve failed: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.End()
		return
	}

	traceID := span.SpanContext().TraceID().String()
	span.End()
	info := ConnInfo{
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(newConnID(), user, info, conn, h.opts.SendBuffer)
	h.hub.Register(client)

	observability.IncWSActive()
	h.publishLifecycle(ctx, client, "ws_connect", "")

	go h.writePump(client)
	reason := h.readPump(ctx, client)

	h.hub.Unregister(client.ID)
	_ = conn.Close()
	observability.DecWSActive()
	h.publishLifecycle(ctx, client, "ws_disconnect", reason)
}

func (h *Handler) readPump(ctx context.Context, client *Client) string {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	limiter := rate.NewLimiter(rate.Limit(h.opts.EventsPerSecond), h.opts.EventBurst)

	// One worker per connection runs events; reads never wait on one.
	inbox := make(chan models.InboundFrame, inboundBuffer)
	defer close(inbox)
	go h.dispatchLoop(context.WithoutCancel(ctx), client, inbox)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read error conn_id=%s: %v", client.ID, err)
				h.publishLifecycle(ctx, client, "ws_error", err.Error())
			}
			return err.Error()
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			h.hub.SendTo(client.ID, models.EventError, models.ErrorPayload{Message: "Invalid event payload"})
			continue
		}
		if !limiter.Allow() {
			observability.IncWSEvent("rate_limited")
			h.hub.SendTo(client.ID, models.EventError, models.ErrorPayload{Message: "Too many events, slow down"})
			continue
		}

		select {
		case inbox <- frame:
			observability.IncWSEvent(frame.Event)
		default:
			observability.IncWSEvent("rate_limited")
			h.hub.SendTo(client.ID, models.EventError, models.ErrorPayload{Message: "Too many events, slow down"})
		}
	}
}

// dispatchLoop runs the connection's events one at a time in arrival order.
// It drains what is queued after the connection closes, then exits.
func (h *Handler) dispatchLoop(ctx context.Context, client *Client, inbox <-chan models.InboundFrame) {
	for frame := range inbox {
		h.dispatcher.Dispatch(ctx, client.ID, client.User, frame)
	}
}

func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	conn := client.conn
	defer func() {
		ticker.Stop()
		h.hub.Unregister(client.ID)
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, client *Client, event, reason string) {
	observability.IncWSEvent(event)
	headers := observability.BuildHeaders(client.Info.RequestID, client.Info.TraceID)
	_ = observability.PublishEvent(ctx, observability.WSRoutingKey,
		observability.NewWSEnvelope(event, client.ID, client.Info.ConnectedAt, reason, client.Info.identity(client.User)), headers)
}
