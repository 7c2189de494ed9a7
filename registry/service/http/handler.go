package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"rstamp/internal/faults"
	core "rstamp/registry/service/core"
)

// RegistryHandler encapsulates the logic for handling HTTP registry requests
type RegistryHandler struct {
	svc    *core.Service
	logger *log.Logger
}

// NewRegistryHandler creates a new RegistryHandler
func NewRegistryHandler(s *core.Service, l *log.Logger) *RegistryHandler {
	return &RegistryHandler{svc: s, logger: l}
}

// Register wires the handler's routes onto mux
func (h *RegistryHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/sessions", h.CreateSession)
	mux.HandleFunc("/v1/draft", h.UpdateDraft)
	mux.HandleFunc("/v1/draft/file", h.DraftFile)
	mux.HandleFunc("/v1/draft/acknowledge", h.Acknowledge)
	mux.HandleFunc("/v1/submissions", h.Submit)
	mux.HandleFunc("/v1/records", h.GetRecord)
	mux.HandleFunc("/v1/records/search", h.Search)
	mux.HandleFunc("/v1/records/recent", h.Recent)
	mux.HandleFunc("/v1/statistics", h.Statistics)
	mux.HandleFunc("/v1/fund", h.Fund)
	mux.HandleFunc("/health", h.HealthCheck)
}

// CreateSession handles POST /v1/sessions requests
func (h *RegistryHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := h.svc.NewSession()

	respPayload := map[string]interface{}{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt.Format(time.RFC3339Nano),
	}
	h.respondJSON(w, respPayload, http.StatusCreated)
}

// UpdateDraft handles GET and POST /v1/draft requests. On POST either field
// may be set independently; a non-empty data_hash replaces any attached file.
func (h *RegistryHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		h.respondError(w, "X-Session-ID header is required", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodGet {
		h.draftStatus(w, sessionID)
		return
	}
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var reqPayload struct {
		Description *string `json:"description,omitempty"`
		DataHash    *string `json:"data_hash,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqPayload); err != nil {
		h.logger.Printf("HTTP Handler: Failed to parse JSON request: %v", err)
		h.respondError(w, "Bad Request: Invalid JSON format", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if reqPayload.Description != nil {
		if err := h.svc.SetDescription(sessionID, *reqPayload.Description); err != nil {
			h.respondFault(w, err)
			return
		}
	}
	if reqPayload.DataHash != nil {
		if err := h.svc.EnterHash(sessionID, *reqPayload.DataHash); err != nil {
			h.respondFault(w, err)
			return
		}
	}

	sess, err := h.svc.Session(sessionID)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	draft := sess.Pipeline.Draft()
	respPayload := map[string]interface{}{
		"state":       string(sess.Pipeline.State()),
		"description": draft.Description,
		"data_hash":   draft.DataHash,
		"file_name":   draft.FileName,
	}
	h.respondJSON(w, respPayload, http.StatusOK)
}

// draftStatus renders the full draft view, including hashing progress for an
// in-flight upload and the user message of the last fault.
func (h *RegistryHandler) draftStatus(w http.ResponseWriter, sessionID string) {
	sess, err := h.svc.Session(sessionID)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	draft := sess.Pipeline.Draft()
	upload := sess.Pipeline.Upload()
	respPayload := map[string]interface{}{
		"state":       string(sess.Pipeline.State()),
		"description": draft.Description,
		"data_hash":   draft.DataHash,
		"file_name":   draft.FileName,
		"upload": map[string]interface{}{
			"uploading": upload.Uploading,
			"progress":  upload.Progress,
		},
	}
	if lastErr := sess.Pipeline.Err(); lastErr != nil {
		respPayload["last_error"] = faults.UserMessage(lastErr)
	}
	h.respondJSON(w, respPayload, http.StatusOK)
}

// DraftFile handles POST and DELETE /v1/draft/file requests
func (h *RegistryHandler) DraftFile(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		h.respondError(w, "X-Session-ID header is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.uploadFile(w, r, sessionID)
	case http.MethodDelete:
		if err := h.svc.ClearFile(sessionID); err != nil {
			h.respondFault(w, err)
			return
		}
		h.respondJSON(w, map[string]interface{}{"status": "cleared"}, http.StatusOK)
	default:
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RegistryHandler) uploadFile(w http.ResponseWriter, r *http.Request, sessionID string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Printf("HTTP Handler: Failed to read multipart file: %v", err)
		h.respondError(w, "Bad Request: multipart field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.svc.AttachFile(r.Context(), sessionID, header.Filename, file, header.Size); err != nil {
		h.respondFault(w, err)
		return
	}

	sess, err := h.svc.Session(sessionID)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	draft := sess.Pipeline.Draft()
	respPayload := map[string]interface{}{
		"state":     string(sess.Pipeline.State()),
		"file_name": draft.FileName,
		"data_hash": draft.DataHash,
	}
	h.respondJSON(w, respPayload, http.StatusOK)
}

// Acknowledge handles POST /v1/draft/acknowledge requests
func (h *RegistryHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		h.respondError(w, "X-Session-ID header is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Acknowledge(sessionID); err != nil {
		h.respondFault(w, err)
		return
	}

	sess, err := h.svc.Session(sessionID)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	h.respondJSON(w, map[string]interface{}{"state": string(sess.Pipeline.State())}, http.StatusOK)
}

// Submit handles POST /v1/submissions requests
func (h *RegistryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		h.respondError(w, "X-Session-ID header is required", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Submit(r.Context(), sessionID)
	if err != nil {
		h.logger.Printf("HTTP Handler: Submission failed for session %s: %v", sessionID, err)
		h.respondFault(w, err)
		return
	}

	respPayload := map[string]interface{}{
		"record": rec,
		"status": "COMMITTED",
	}
	h.respondJSON(w, respPayload, http.StatusCreated)
}

// GetRecord handles GET /v1/records?address= requests
func (h *RegistryHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	rec, err := h.svc.Record(r.Context(), address)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	if rec == nil {
		h.respondError(w, "No record found for address", http.StatusNotFound)
		return
	}

	h.respondJSON(w, rec, http.StatusOK)
}

// Search handles GET /v1/records/search?q= requests
func (h *RegistryHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	term := r.URL.Query().Get("q")
	records := h.svc.Search(term)

	respPayload := map[string]interface{}{
		"records": records,
		"count":   len(records),
	}
	h.respondJSON(w, respPayload, http.StatusOK)
}

// Recent handles GET /v1/records/recent?limit= requests
func (h *RegistryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records := h.svc.Recent(limit)
	respPayload := map[string]interface{}{
		"records": records,
		"count":   len(records),
	}
	h.respondJSON(w, respPayload, http.StatusOK)
}

// Statistics handles GET /v1/statistics requests
func (h *RegistryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	respPayload := map[string]interface{}{
		"statistics": h.svc.Statistics(),
	}

	// The ledger's own count is advisory; an unreachable ledger must not
	// take the local statistics down with it.
	if total, err := h.svc.LedgerTotal(r.Context()); err == nil {
		respPayload["ledger_total_submissions"] = total
	} else {
		h.logger.Printf("HTTP Handler: Ledger count lookup failed: %v", err)
	}

	h.respondJSON(w, respPayload, http.StatusOK)
}

// Fund handles POST /v1/fund requests (dev-net identity funding)
func (h *RegistryHandler) Fund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var reqPayload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reqPayload); err != nil {
		h.respondError(w, "Bad Request: Invalid JSON format", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	funded, err := h.svc.FundIdentity(r.Context(), reqPayload.Address)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	h.respondJSON(w, map[string]interface{}{"funded": funded}, http.StatusOK)
}

// HealthCheck handles GET /health requests
func (h *RegistryHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339Nano),
		"service":   "registry",
		"sessions":  h.svc.SessionCount(),
	}

	h.respondJSON(w, resp, http.StatusOK)
}

// respondFault maps a classified error to an HTTP status and renders its
// user-facing message
func (h *RegistryHandler) respondFault(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch faults.KindOf(err) {
	case faults.KindValidation:
		statusCode = http.StatusBadRequest
	case faults.KindDuplicate:
		statusCode = http.StatusConflict
	case faults.KindTransport:
		statusCode = http.StatusBadGateway
	}

	h.respondError(w, faults.UserMessage(err), statusCode)
}

// respondJSON sends JSON response
func (h *RegistryHandler) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("HTTP Handler: Failed to encode JSON response: %v", err)
		// Cannot send error to client at this point
	}
}

// respondError sends error response
func (h *RegistryHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	errorResp := map[string]interface{}{
		"error":   message,
		"status":  statusCode,
		"message": http.StatusText(statusCode),
	}

	h.respondJSON(w, errorResp, statusCode)
}
