package httputil

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "regdesk/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "request not found"), http.StatusNotFound, "not_found"},
		{"validation", dErrors.New(dErrors.CodeValidation, "bad username"), http.StatusBadRequest, "validation_failed"},
		{"conflict", dErrors.New(dErrors.CodeConflict, "taken"), http.StatusConflict, "conflict"},
		{"provision create", dErrors.New(dErrors.CodeProvisionCreate, "add failed"), http.StatusBadGateway, "provision_create_failed"},
		{"provision credential", dErrors.New(dErrors.CodeProvisionCredential, "passwd failed"), http.StatusBadGateway, "provision_credential_failed"},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "directory timeout"), http.StatusGatewayTimeout, "timeout"},
		{"plain error hides detail", errors.New("pq: secret detail"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tc.err)

			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantCode)
			if tc.wantCode == "internal_error" {
				assert.NotContains(t, rr.Body.String(), "secret detail")
			}
		})
	}
}

type prepReq struct {
	Name string `json:"name"`
}

func (r *prepReq) Normalize() { r.Name = strings.TrimSpace(r.Name) }
func (r *prepReq) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("decodes, normalizes, validates", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"  alice  "}`))
		rr := httptest.NewRecorder()

		req, ok := DecodeAndPrepare[prepReq](rr, r, logger, "req-1")
		require.True(t, ok)
		assert.Equal(t, "alice", req.Name)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		rr := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[prepReq](rr, r, logger, "req-2")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects validation failures with their code", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"   "}`))
		rr := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[prepReq](rr, r, logger, "req-3")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "name is required")
	})
}
