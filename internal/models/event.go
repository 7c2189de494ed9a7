package models

// RecordEventKind distinguishes the two message types flowing through the
// registry topic.
type RecordEventKind string

const (
	// EventCommitted is published by the registry service after a submission
	// is confirmed by the ledger and ingested into the local cache.
	EventCommitted RecordEventKind = "committed"

	// EventVerified is published by the external verification authority when
	// it marks a record as verified. The verifier engine consumes these.
	EventVerified RecordEventKind = "verified"
)

// RecordEvent defines the message structure for registry record events.
// Used across the registry service, verifier engine, and messaging layers.
type RecordEvent struct {
	EventID           string          `json:"event_id"`
	Kind              RecordEventKind `json:"kind"`
	ResearcherAddress string          `json:"researcher_address"`
	DataHash          string          `json:"data_hash"`
	VerifiedTimestamp int64           `json:"verified_timestamp,omitempty"` // unix seconds, EventVerified only
	EmittedTimestamp  string          `json:"emitted_timestamp"`            // RFC3339Nano
}
