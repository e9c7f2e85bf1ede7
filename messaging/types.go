package messaging

import (
	"encoding/json"
	"time"
)

// Inbound message types carry raw operational facts from the staff app and
// in-store devices; msg_type doubles as the raw event type.
const (
	MsgShiftLog      = "shift_log"
	MsgLeaderReport  = "leader_report"
	MsgSignal5S      = "signal_5s"
	MsgFoodSafetyLog = "food_safety_log"

	// Outbound.
	MsgSignalRaised = "signal.raised"
)

// Envelope wraps every message on the wire. Staff and store are identified
// by their human-readable codes at this boundary; the intake resolves them
// to surrogate ids before anything touches the database.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	StaffCode string    `json:"staff_code"`
	StoreCode string    `json:"store_code"`
	RegionID  string    `json:"region_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// EventSubmission is the inbound payload for the four raw event types: the
// event time plus the type-specific body, passed through opaque.
type EventSubmission struct {
	EventTime time.Time       `json:"event_time"`
	Body      json.RawMessage `json:"body"`
}

// SignalNotice is the outbound payload published for each raised signal.
type SignalNotice struct {
	SignalID int64  `json:"signal_id"`
	EventID  int64  `json:"event_id"`
	RuleCode string `json:"rule_code"`
	Severity string `json:"severity"`
}
