package performance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFetcher(t *testing.T, srv *httptest.Server, retries int) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(Config{BaseURL: srv.URL + "/", Token: "secret", Timeout: 5 * time.Second, Retries: retries}, nil)
	require.NoError(t, err)
	return f
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"averageScore": 62.5, "attempts": 40}`))
	}))
	defer srv.Close()

	data, err := newFetcher(t, srv, 0).Fetch(context.Background(), "bootcamp-7")
	require.NoError(t, err)
	assert.Equal(t, "/admin/assessment-performance/bootcamp-7", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 62.5, decoded["averageScore"])
}

func TestHTTPFetcher_EmptyCohortSkipsCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	data, err := newFetcher(t, srv, 0).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHTTPFetcher_EmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "{}", "[]", `""`, "  \n"} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			data, err := newFetcher(t, srv, 0).Fetch(context.Background(), "c1")
			require.NoError(t, err)
			assert.Nil(t, data)
		})
	}
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv, 2).Fetch(context.Background(), "c1")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "unauthorized", statusErr.Body)
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	data, err := newFetcher(t, srv, 2).Fetch(context.Background(), "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPFetcher_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := newFetcher(t, srv, 0).Fetch(context.Background(), "c1")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestNewHTTPFetcher_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPFetcher(Config{}, nil)
	assert.Error(t, err)
	assert.False(t, Config{}.Enabled())
}

func TestStatic(t *testing.T) {
	s := Static(`{"avg":1}`)
	data, err := s.Fetch(context.Background(), "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"avg":1}`, string(data))

	data, err = s.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, data)
}
