package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
)

// UploadFormField is the multipart field carrying candidate source.
const UploadFormField = "file"

// multipartOverhead is allowed on top of the source limit for headers and
// boundaries.
const multipartOverhead = 64 << 10

// CandidateSubmitter validates candidate source and activates it.
// *strategy.Validator implements it.
type CandidateSubmitter interface {
	Submit(ctx context.Context, source []byte) (*strategy.ActiveStrategy, error)
}

// ActiveStrategySource reports the active strategy. *strategy.Registry
// implements it.
type ActiveStrategySource interface {
	Current() *strategy.ActiveStrategy
}

// StrategyHandler serves candidate upload and active strategy lookup.
type StrategyHandler struct {
	submitter      CandidateSubmitter
	active         ActiveStrategySource
	maxSourceBytes int64
}

// NewStrategyHandler creates a new StrategyHandler.
func NewStrategyHandler(submitter CandidateSubmitter, active ActiveStrategySource, maxSourceBytes int64) *StrategyHandler {
	return &StrategyHandler{
		submitter:      submitter,
		active:         active,
		maxSourceBytes: maxSourceBytes,
	}
}

// Upload handles POST /api/strategies. The candidate becomes active only if
// it passes every validation stage; otherwise the active strategy is
// unchanged and the reason is returned.
func (h *StrategyHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSourceBytes+multipartOverhead)

	file, header, err := r.FormFile(UploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Uploaded file is too large", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Request must be multipart with a \""+UploadFormField+"\" file", err)
		return
	}
	defer func() { _ = file.Close() }()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".go") {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Uploaded file must be Go source (.go)", nil, shared.WithElevatedLogLevel())
		return
	}

	// One byte past the limit is enough for the validator to report it.
	source, err := io.ReadAll(io.LimitReader(file, h.maxSourceBytes+1))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}

	active, err := h.submitter.Submit(r.Context(), source)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to activate strategy")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UploadStrategyResponse{
		Message:    "Strategy uploaded and activated",
		Function:   sandbox.EntryPoint,
		Version:    active.Version,
		SourceHash: active.SourceHash,
	})
}

// Active handles GET /api/strategies/active.
func (h *StrategyHandler) Active(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, toActiveStrategyResponse(h.active.Current()))
}
