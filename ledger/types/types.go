package types

// ErrorKind classifies a failed ledger submission at the adapter boundary.
// Business rejections come back from the contract; transport covers anything
// that prevented the attempt from completing.
type ErrorKind string

const (
	ErrorNone             ErrorKind = ""
	ErrorAlreadySubmitted ErrorKind = "AlreadySubmitted"
	ErrorRejected         ErrorKind = "Rejected"
	ErrorTransport        ErrorKind = "Transport"
)

// SubmissionStatus corresponds to the status enum returned by the registry
// contract for a submission.
type SubmissionStatus string

const (
	StatusSuccess          SubmissionStatus = "Success"
	StatusAlreadySubmitted SubmissionStatus = "AlreadySubmitted"
	StatusErrorValidation  SubmissionStatus = "ErrorValidation"
	StatusErrorPutState    SubmissionStatus = "ErrorPutState"
)

// SubmissionResult corresponds to the struct returned in the contract's
// submission result JSON.
type SubmissionResult struct {
	Status         SubmissionStatus `json:"status"`
	Message        string           `json:"message"`
	SubmissionTime int64            `json:"submission_time"`
}

// SubmissionReceipt is the normalized outcome of exactly one submission
// attempt against the ledger.
type SubmissionReceipt struct {
	Success            bool
	ConfirmedTimestamp int64 // unix seconds, ledger-assigned; zero unless Success
	TransactionID      string
	ErrorKind          ErrorKind
	Message            string
}

// LedgerRecord mirrors the on-ledger registry entry for one researcher.
type LedgerRecord struct {
	ResearcherAddress string `json:"researcher_address"`
	DataHash          string `json:"data_hash"`
	SubmissionTime    int64  `json:"submission_time"`
	Description       string `json:"description"`
	IsVerified        bool   `json:"is_verified"`
}
