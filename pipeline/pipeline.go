// Package pipeline drives a submission draft from file selection to ledger
// confirmation. The state machine here is the single source of truth for
// legal transitions; surfaces issue commands against it instead of mutating
// draft state themselves.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"unicode/utf8"

	"rstamp/internal/faults"
	"rstamp/internal/hashing"
	"rstamp/internal/models"
	"rstamp/ledger/gateway"
	"rstamp/ledger/types"
	"rstamp/registry/cache"
)

// State is the lifecycle position of the current draft.
type State string

const (
	StateEmpty      State = "Empty"
	StateHashing    State = "Hashing"
	StateReady      State = "Ready"
	StateSubmitting State = "Submitting"
	StateCommitted  State = "Committed"
	StateFailed     State = "Failed"
)

// ErrHashingCancelled is returned by AttachFile when the upload was cleared
// or replaced before its digest completed. A cancelled hash never populates
// the draft.
var ErrHashingCancelled = errors.New("hashing cancelled")

// Draft is the mutable in-progress submission. One active instance per
// session; never persisted.
type Draft struct {
	Description string
	DataHash    string
	FileName    string
}

// FileUploadState tracks one in-progress file, destroyed when the file is
// cleared or replaced.
type FileUploadState struct {
	FileName  string
	Size      int64
	Uploading bool
	Progress  int // 0-100, monotonically non-decreasing while uploading
	Hash      string
	Err       error
}

// Pipeline owns the draft and upload state for one user session.
type Pipeline struct {
	mu     sync.Mutex
	state  State
	draft  Draft
	upload FileUploadState

	// hashGen identifies the current upload; a completed digest whose
	// generation is stale was cancelled and must be discarded.
	hashGen    int
	hashCancel context.CancelFunc

	lastErr error

	engine  *hashing.Engine
	gateway *gateway.Gateway
	cache   *cache.Cache
	wallet  Wallet
	logger  *log.Logger
}

// New creates a Pipeline in the Empty state.
func New(engine *hashing.Engine, gw *gateway.Gateway, c *cache.Cache, w Wallet, logger *log.Logger) *Pipeline {
	return &Pipeline{
		state:   StateEmpty,
		engine:  engine,
		gateway: gw,
		cache:   c,
		wallet:  w,
		logger:  logger,
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Draft returns a copy of the current draft.
func (p *Pipeline) Draft() Draft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Upload returns a copy of the current file upload state.
func (p *Pipeline) Upload() FileUploadState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upload
}

// Err returns the error that moved the pipeline into Failed, if any.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// SetDescription updates the draft description. Refused while a submission
// is in flight; validation happens at submit time, not here.
func (p *Pipeline) SetDescription(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSubmitting {
		return faults.Validation("cannot edit the draft while a submission is in flight")
	}
	p.draft.Description = s
	return nil
}

// EnterHash sets the data hash from manual entry, reaching Ready without a
// Hashing phase. Invalid input fails fast and leaves the state unchanged.
func (p *Pipeline) EnterHash(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSubmitting || p.state == StateHashing {
		return faults.Validation("cannot set a hash while the pipeline is busy")
	}
	if !hashing.IsValidHash(s) {
		return faults.Validation("invalid data hash format: %q", s)
	}
	p.draft.DataHash = s
	p.draft.FileName = ""
	p.upload = FileUploadState{}
	p.state = StateReady
	p.lastErr = nil
	return nil
}

// AttachFile digests a selected file and populates the draft with the
// resulting hash. Progress is reported through the upload state as real
// byte-count percentages. An oversized file is rejected before hashing
// begins; a read error moves the pipeline to Failed but keeps the file
// reference so the user can retry without re-selecting.
func (p *Pipeline) AttachFile(ctx context.Context, name string, r io.Reader, size int64) error {
	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return faults.Validation("cannot attach a file while a submission is in flight")
	}
	if p.hashCancel != nil {
		p.hashCancel()
	}
	p.hashGen++
	gen := p.hashGen

	hashCtx, cancel := context.WithCancel(ctx)
	p.hashCancel = cancel
	p.upload = FileUploadState{FileName: name, Size: size, Uploading: true}
	p.draft.DataHash = ""
	p.state = StateHashing
	p.mu.Unlock()

	hash, err := p.engine.HashReader(hashCtx, r, size, func(pct int) {
		p.mu.Lock()
		if p.hashGen == gen && pct > p.upload.Progress {
			p.upload.Progress = pct
		}
		p.mu.Unlock()
	})
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hashGen != gen {
		// Upload was cleared or replaced mid-hash; discard the result.
		return ErrHashingCancelled
	}

	if err != nil {
		p.upload.Uploading = false
		p.upload.Progress = 0
		p.upload.Err = err
		p.state = StateFailed
		p.lastErr = err
		p.logger.Printf("Pipeline: hashing of '%s' failed: %v", name, err)
		return err
	}

	p.upload.Uploading = false
	p.upload.Progress = 100
	p.upload.Hash = hash
	p.draft.DataHash = hash
	p.draft.FileName = name
	p.state = StateReady
	p.lastErr = nil
	return nil
}

// ClearFile discards the upload and any hash derived from it, cancelling an
// in-flight digest. Refused while submitting: a sent submission cannot be
// cancelled, only awaited.
func (p *Pipeline) ClearFile() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSubmitting {
		return
	}
	if p.hashCancel != nil {
		p.hashCancel()
		p.hashCancel = nil
	}
	p.hashGen++
	p.upload = FileUploadState{}
	p.draft.DataHash = ""
	p.draft.FileName = ""
	p.state = StateEmpty
	p.lastErr = nil
}

// Validate reports every unmet submission precondition without mutating any
// state. An empty result means the draft may enter Submitting.
func (p *Pipeline) Validate(ctx context.Context) []string {
	p.mu.Lock()
	draft := p.draft
	p.mu.Unlock()
	errs, _ := p.validateDraft(ctx, draft)
	return errs
}

func (p *Pipeline) validateDraft(ctx context.Context, draft Draft) ([]string, string) {
	var errs []string

	// Bounds are in characters, not bytes, so multibyte text is not penalized.
	descLen := utf8.RuneCountInString(draft.Description)
	if descLen < 10 {
		errs = append(errs, "description too short (minimum 10 characters)")
	} else if descLen > 500 {
		errs = append(errs, "description too long (maximum 500 characters)")
	}

	if draft.DataHash == "" {
		errs = append(errs, "data hash is required")
	} else if !hashing.IsValidHash(draft.DataHash) {
		errs = append(errs, "invalid data hash format")
	}

	address, err := p.wallet.ActiveIdentity(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("wallet unavailable: %v", err))
	} else if address == "" {
		errs = append(errs, "no authenticated identity")
	} else if !hashing.IsValidHash(address) {
		errs = append(errs, "researcher address has invalid format")
	}

	return errs, address
}

// Submit drives Ready through Submitting to Committed or Failed. At most one
// submission is in flight at a time; preconditions are reported as a
// ValidationError while the draft stays in Ready. On success the confirmed
// record is handed to the registry cache and the draft resets to Empty; on
// failure the draft is preserved for correction and resubmission.
func (p *Pipeline) Submit(ctx context.Context) (*models.ResearchRecord, error) {
	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return nil, faults.Validation("a submission is already in flight")
	}
	if p.state != StateReady {
		p.mu.Unlock()
		return nil, faults.Validation("draft is not ready for submission (state: %s)", p.state)
	}
	draft := p.draft
	p.mu.Unlock()

	errs, address := p.validateDraft(ctx, draft)
	if len(errs) > 0 {
		return nil, faults.ValidationList(errs)
	}

	payload, err := json.Marshal(struct {
		Address     string `json:"address"`
		DataHash    string `json:"data_hash"`
		Description string `json:"description"`
	}{Address: address, DataHash: draft.DataHash, Description: draft.Description})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission payload: %w", err)
	}
	if _, err := p.wallet.AuthorizeSubmission(ctx, payload); err != nil {
		return nil, p.fail(faults.Transport(err, "wallet refused to authorize the submission"))
	}

	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return nil, faults.Validation("a submission is already in flight")
	}
	p.state = StateSubmitting
	p.mu.Unlock()

	receipt := p.gateway.Submit(ctx, address, draft.DataHash, draft.Description)

	if !receipt.Success {
		var ferr error
		switch receipt.ErrorKind {
		case types.ErrorAlreadySubmitted:
			ferr = faults.Duplicate(address)
		case types.ErrorTransport:
			ferr = faults.Transport(errors.New(receipt.Message), "ledger unreachable")
		default:
			ferr = fmt.Errorf("ledger rejected submission: %s", receipt.Message)
		}
		return nil, p.fail(ferr)
	}

	rec := models.ResearchRecord{
		ID:                address,
		ResearcherAddress: address,
		DataHash:          draft.DataHash,
		SubmissionTime:    receipt.ConfirmedTimestamp,
		Description:       draft.Description,
	}

	p.mu.Lock()
	p.state = StateCommitted
	p.mu.Unlock()

	p.cache.Upsert(ctx, rec)

	p.mu.Lock()
	p.draft = Draft{}
	p.upload = FileUploadState{}
	p.state = StateEmpty
	p.lastErr = nil
	p.mu.Unlock()

	p.logger.Printf("Pipeline: submission for %s committed at %d (tx: %s)", address, receipt.ConfirmedTimestamp, receipt.TransactionID)
	return &rec, nil
}

// fail records err and moves the pipeline to Failed without touching the
// draft, so the user can correct and resubmit.
func (p *Pipeline) fail(err error) error {
	p.mu.Lock()
	p.state = StateFailed
	p.lastErr = err
	p.mu.Unlock()
	return err
}

// Acknowledge clears a Failed state after the user has seen the error. The
// draft returns to Ready when it still carries a valid hash, otherwise to
// Empty so the file can be reselected. Failed is never a dead end.
func (p *Pipeline) Acknowledge() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateFailed {
		return
	}
	p.lastErr = nil
	p.upload.Err = nil
	if hashing.IsValidHash(p.draft.DataHash) {
		p.state = StateReady
	} else {
		p.state = StateEmpty
	}
}

// Reset discards the draft and upload entirely, returning to Empty.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateSubmitting {
		return
	}
	if p.hashCancel != nil {
		p.hashCancel()
		p.hashCancel = nil
	}
	p.hashGen++
	p.draft = Draft{}
	p.upload = FileUploadState{}
	p.state = StateEmpty
	p.lastErr = nil
}
