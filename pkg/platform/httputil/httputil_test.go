package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "acadmin/pkg/domain-errors"
)

type countedErr struct{}

func (countedErr) Error() string { return "program CS101 has dependent records" }
func (countedErr) ErrorCode() dErrors.Code { return dErrors.CodeDependentRecords }
func (countedErr) CountMap() map[string]int64 { return map[string]int64{"branches": 2} }

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "invalid input", body["error_description"])
	})

	t.Run("dependent records carry counts", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, countedErr{})

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "dependent_records", body["error"])
		assert.Equal(t, map[string]any{"branches": float64(2)}, body["dependent_counts"])
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type voteBody struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=10"`
}

func (v *voteBody) Validate() error {
	v.Note = strings.TrimSpace(v.Note)
	if v.Note == "forbidden" {
		return dErrors.New(dErrors.CodeValidation, "note is not allowed")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decode := func(body string) (*voteBody, *httptest.ResponseRecorder, bool) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		w := httptest.NewRecorder()
		got, ok := DecodeAndPrepare[voteBody](w, r, logger, r.Context(), "req-1")
		return got, w, ok
	}

	t.Run("valid body is normalised", func(t *testing.T) {
		got, _, ok := decode(`{"decision":"approve","note":"  ok "}`)
		require.True(t, ok)
		assert.Equal(t, "ok", got.Note)
	})

	t.Run("tag rules use json names", func(t *testing.T) {
		_, w, ok := decode(`{"decision":"maybe"}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["error_description"], "decision must be one of")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, w, ok := decode(`{"decision":"approve","extra":1}`)
		require.False(t, ok)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("Validate runs after tags", func(t *testing.T) {
		_, w, ok := decode(`{"decision":"reject","note":"forbidden"}`)
		require.False(t, ok)
		assert.Equal(t, "note is not allowed", decodeBody(t, w)["error_description"])
	})
}
