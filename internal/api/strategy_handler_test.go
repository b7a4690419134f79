package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
)

const testMaxSource = 1024

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/strategies", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(shared.SetTraceID(req.Context()))
	return asUser(req, uuid.New(), true)
}

func TestStrategyHandler_Upload(t *testing.T) {
	source := []byte("package packer\n")

	t.Run("activated", func(t *testing.T) {
		sub := &fakeSubmitter{SubmitFn: func(_ context.Context, got []byte) (*strategy.ActiveStrategy, error) {
			assert.Equal(t, source, got)
			return &strategy.ActiveStrategy{Version: 4, SourceHash: strategy.SourceHash(got), Origin: strategy.OriginUpload}, nil
		}}
		h := NewStrategyHandler(sub, nil, testMaxSource)

		w := httptest.NewRecorder()
		h.Upload(w, uploadRequest(t, UploadFormField, "packer.go", source))

		require.Equal(t, http.StatusOK, w.Code)
		var resp UploadStrategyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, UploadStrategyResponse{
			Message:    "Strategy uploaded and activated",
			Function:   sandbox.EntryPoint,
			Version:    4,
			SourceHash: strategy.SourceHash(source),
		}, resp)
	})

	t.Run("oversize source reaches validator truncated", func(t *testing.T) {
		var gotLen int
		sub := &fakeSubmitter{SubmitFn: func(_ context.Context, got []byte) (*strategy.ActiveStrategy, error) {
			gotLen = len(got)
			return nil, placement.NewInvalidCandidateError(sandbox.StageStructural, "source is too large", nil)
		}}
		h := NewStrategyHandler(sub, nil, testMaxSource)

		w := httptest.NewRecorder()
		h.Upload(w, uploadRequest(t, UploadFormField, "big.go", bytes.Repeat([]byte("a"), testMaxSource*2)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, testMaxSource+1, gotLen)
	})

	tests := []struct {
		name       string
		field      string
		filename   string
		content    []byte
		submitErr  error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{
			name:       "wrong extension",
			field:      UploadFormField,
			filename:   "packer.py",
			content:    source,
			wantStatus: http.StatusBadRequest,
			wantError:  "Uploaded file must be Go source (.go)",
		},
		{
			name:       "missing file field",
			field:      "upload",
			filename:   "packer.go",
			content:    source,
			wantStatus: http.StatusBadRequest,
			wantError:  `Request must be multipart with a "file" file`,
		},
		{
			name:     "rejected candidate",
			field:    UploadFormField,
			filename: "packer.go",
			content:  source,
			submitErr: placement.NewInvalidCandidateError(sandbox.StageStructural,
				"forbidden imports [os] (allowed: context, math, sort)", nil),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid candidate (structural): forbidden imports [os] (allowed: context, math, sort)",
			wantCalls:  1,
		},
		{
			name:     "smoke test timeout",
			field:    UploadFormField,
			filename: "PACKER.GO",
			content:  source,
			submitErr: &placement.PlacementError{
				Kind:    placement.ErrAlgorithmTimeout,
				Stage:   strategy.StageSmoke,
				Message: "empty input: no result within 1s",
			},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "algorithm timeout (smoke): empty input: no result within 1s",
			wantCalls:  1,
		},
		{
			name:       "source store failure",
			field:      UploadFormField,
			filename:   "packer.go",
			content:    source,
			submitErr:  assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to activate strategy",
			wantCalls:  1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub := &fakeSubmitter{SubmitFn: func(context.Context, []byte) (*strategy.ActiveStrategy, error) {
				return nil, tc.submitErr
			}}
			h := NewStrategyHandler(sub, nil, testMaxSource)

			w := httptest.NewRecorder()
			h.Upload(w, uploadRequest(t, tc.field, tc.filename, tc.content))

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantError, decodeError(t, w).Error)
			assert.Equal(t, tc.wantCalls, sub.calls)
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		sub := &fakeSubmitter{}
		h := NewStrategyHandler(sub, nil, testMaxSource)

		req := jsonRequest(t, http.MethodPost, "/api/strategies", strings.Repeat("x", 10))
		w := httptest.NewRecorder()
		h.Upload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, sub.calls)
	})
}

func TestStrategyHandler_Active(t *testing.T) {
	reg, err := strategy.NewRegistry(placement.SequentialStrategy{}, nil, nil)
	require.NoError(t, err)
	h := NewStrategyHandler(&fakeSubmitter{}, reg, testMaxSource)

	w := httptest.NewRecorder()
	h.Active(w, jsonRequest(t, http.MethodGet, "/api/strategies/active", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ActiveStrategyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, placement.SequentialName, resp.Name)
	assert.Equal(t, uint64(1), resp.Version)
	assert.Equal(t, strategy.OriginBuiltin, resp.Origin)
	assert.Empty(t, resp.SourceHash)
}
