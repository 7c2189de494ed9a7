package models

// ResearchRecord is one ledger-confirmed submission held in the local registry.
// The ledger enforces at most one record per researcher address, so the
// address doubles as the record id.
type ResearchRecord struct {
	ID                string `json:"id"`
	ResearcherAddress string `json:"researcher_address"`
	DataHash          string `json:"data_hash"`
	SubmissionTime    int64  `json:"submission_time"` // unix seconds, assigned by the ledger
	Description       string `json:"description"`
	IsVerified        bool   `json:"is_verified"`
	VerifiedAt        int64  `json:"verified_at,omitempty"` // unix seconds, zero until verified
}

// Statistics is the derived aggregate over the registry record set.
// It is always recomputable from scratch from the records; the incremental
// bookkeeping in the cache is an optimization only.
type Statistics struct {
	TotalSubmissions        int   `json:"total_submissions"`
	VerifiedSubmissions     int   `json:"verified_submissions"`
	ActiveResearchers       int   `json:"active_researchers"`
	AverageVerificationTime int64 `json:"average_verification_time"` // seconds between submission and verification
}
