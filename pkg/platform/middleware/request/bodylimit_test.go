package request

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoLen reports in X-Body-Len how many body bytes the handler read.
func echoLen(readErr *error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		*readErr = err
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Body-Len", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimit(t *testing.T) {
	const maxBytes int64 = 32

	tests := []struct {
		name string
		size int
	}{
		{"empty body", 0},
		{"under the cap", 10},
		{"exactly the cap", int(maxBytes)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			handler := BodyLimit(maxBytes)(echoLen(&readErr))
			req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(strings.Repeat("x", tt.size)))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			require.NoError(t, readErr)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, strconv.Itoa(tt.size), w.Header().Get("X-Body-Len"))
		})
	}

	t.Run("declared length over the cap is refused up front", func(t *testing.T) {
		called := false
		handler := BodyLimit(maxBytes)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "payload_too_large", body["error"])
		assert.Equal(t, "request body exceeds 32 bytes", body["error_description"])
	})

	t.Run("unknown length is cut off on read", func(t *testing.T) {
		var readErr error
		handler := BodyLimit(maxBytes)(echoLen(&readErr))
		req := httptest.NewRequest(http.MethodPost, "/clients", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
		req.ContentLength = -1
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		var maxErr *http.MaxBytesError
		require.ErrorAs(t, readErr, &maxErr)
		assert.Equal(t, maxBytes, maxErr.Limit)
	})

	t.Run("zero disables the limit", func(t *testing.T) {
		var readErr error
		handler := BodyLimit(0)(echoLen(&readErr))
		req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		require.NoError(t, readErr)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
