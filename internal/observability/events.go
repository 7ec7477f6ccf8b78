package observability

import "time"

// WSRoutingKey carries every websocket lifecycle envelope.
const WSRoutingKey = "ws_events.portal"

type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// WSIdentity describes who owns a websocket connection.
type WSIdentity struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

// WSEventPayload is the body of a ws_events envelope.
type WSEventPayload struct {
	WS struct {
		Event      string `json:"event"`
		ConnID     string `json:"conn_id"`
		DurationMS int64  `json:"duration_ms"`
		Reason     string `json:"reason"`
	} `json:"ws"`
	Identity WSIdentity `json:"identity"`
}

// NewWSEnvelope builds a ws_events envelope for a connection lifecycle event.
func NewWSEnvelope(event, connID string, connectedAt time.Time, reason string, identity WSIdentity) EventEnvelope {
	var p WSEventPayload
	p.WS.Event = event
	p.WS.ConnID = connID
	if !connectedAt.IsZero() {
		p.WS.DurationMS = time.Since(connectedAt).Milliseconds()
	}
	p.WS.Reason = reason
	p.Identity = identity
	return EventEnvelope{EventType: "ws_events", EventName: event, Payload: p}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
