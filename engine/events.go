package engine

const (
	EventRawEventLogged EventType = iota + 1
	EventSignalRaised
	EventStaffRollupComputed
	EventStoreRollupComputed
	EventProfileReconciled
	EventBatchRunFinished
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type RawEventLoggedEvent struct {
	EventID     int64
	EventType   string
	StaffID     int64
	StoreID     int64
	SignalCount int
}

type SignalRaisedEvent struct {
	SignalID int64
	EventID  int64
	StaffID  int64
	StoreID  int64
	RuleCode string
	Severity string
}

type StaffRollupComputedEvent struct {
	StaffID              int64
	Day                  string
	TrustScoreDelta      float64
	OpsContributionScore float64
}

type StoreRollupComputedEvent struct {
	StoreID         int64
	Day             string
	OverallOpsScore float64
	IncidentCount   int
}

type ProfileReconciledEvent struct {
	StaffID          int64
	TrustScore       float64
	PerformanceScore float64
}

type BatchRunFinishedEvent struct {
	FromDay  string
	ToDay    string
	Units    int
	Failures int
}

type ConnectionEvent struct {
	Detail string
}
