package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/utils"
)

func fastBackoff() utils.Backoff { return utils.NewBackoff(time.Millisecond, 2) }

func TestGetJSON_StatusErrors(t *testing.T) {
	for _, code := range []int{http.StatusInternalServerError, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", code)
		}))
		var v any
		err := getJSON(context.Background(), NewHTTPClient(2*time.Second), srv.URL, &v)
		srv.Close()

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, code, se.Code)
	}
}

func TestGetJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	var v any
	err := getJSON(context.Background(), NewHTTPClient(50*time.Millisecond), srv.URL, &v)
	require.Error(t, err)
	assert.True(t, retryable(err))
}

func TestGetJSONWithRetry_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var v struct{ OK bool }
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), fastBackoff(), srv.URL, &v)
	require.NoError(t, err)
	assert.True(t, v.OK)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetJSONWithRetry_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var v any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), fastBackoff(), srv.URL, &v)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetJSONWithRetry_BadBodyIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var v any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(time.Second), fastBackoff(), srv.URL, &v)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}
