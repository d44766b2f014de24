package observability

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEvent describes a websocket lifecycle transition of one connection.
type WSEvent struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id"`
	ConnID         string `json:"conn_id"`
	DurationMS     int64  `json:"duration_ms"`
	Reason         string `json:"reason"`
}

// Identity is who was on the other end of a connection.
type Identity struct {
	UserID   int    `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

// WSEnvelope wraps a websocket lifecycle event for the event bus.
func WSEnvelope(ev WSEvent, who Identity) EventEnvelope {
	return EventEnvelope{
		EventType: "ws_events",
		EventName: ev.Event,
		Payload: map[string]interface{}{
			"ws":       ev,
			"identity": who,
		},
	}
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
