package messaging

import (
	"log"

	"opscore/store"
)

// EventSink receives decoded submissions from the intake consumer.
// Implemented by the engine; kept as an interface to avoid an import cycle.
type EventSink interface {
	LogRawEvent(ev *store.RawEvent) (*store.RawEvent, []*store.Signal, error)
}

// IntakeHandler consumes event submissions from the inbound topic,
// resolves staff and store codes to internal IDs, and hands the raw
// event to the sink for persistence and signal extraction.
type IntakeHandler struct {
	db   *store.DB
	sink EventSink
}

func NewIntakeHandler(db *store.DB, sink EventSink) *IntakeHandler {
	return &IntakeHandler{db: db, sink: sink}
}

// Handle is the MessageHandler for the events topic. Malformed or
// unresolvable messages are logged and dropped so one bad producer
// cannot stall the consumer.
func (h *IntakeHandler) Handle(topic string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		log.Printf("intake: decode message on %s: %v", topic, err)
		return
	}

	sub, ok := env.Payload.(EventSubmission)
	if !ok {
		log.Printf("intake: ignoring %s message %s on events topic", env.MsgType, env.MsgID)
		return
	}

	eventType, ok := eventTypeFor(env.MsgType)
	if !ok {
		log.Printf("intake: no event type for %s (msg %s)", env.MsgType, env.MsgID)
		return
	}

	st, err := h.db.GetStoreByCode(env.StoreCode)
	if err != nil {
		log.Printf("intake: unknown store %q (msg %s): %v", env.StoreCode, env.MsgID, err)
		return
	}

	// Every submission is filed by someone: shift logs and leader reports
	// by the worker, 5S checks and temperature logs by the area checker.
	staff, err := h.db.GetStaffByCode(env.StaffCode)
	if err != nil {
		log.Printf("intake: unknown staff %q (msg %s): %v", env.StaffCode, env.MsgID, err)
		return
	}

	ev := &store.RawEvent{
		EventType: eventType,
		StaffID:   staff.ID,
		StoreID:   st.ID,
		EventTime: sub.EventTime,
		Payload:   string(sub.Body),
	}

	if _, signals, err := h.sink.LogRawEvent(ev); err != nil {
		log.Printf("intake: log event (msg %s): %v", env.MsgID, err)
	} else if len(signals) > 0 {
		log.Printf("intake: %s from %s raised %d signal(s)", eventType, env.StoreCode, len(signals))
	}
}

func eventTypeFor(msgType string) (string, bool) {
	switch msgType {
	case MsgShiftLog:
		return store.EventShiftLog, true
	case MsgLeaderReport:
		return store.EventLeaderReport, true
	case MsgSignal5S:
		return store.EventSignal5S, true
	case MsgFoodSafetyLog:
		return store.EventFoodSafetyLog, true
	default:
		return "", false
	}
}
