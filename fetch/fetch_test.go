package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) Policy {
	return NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, retries)
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"docs":[{"slug":"a"}]}`))
	}))
	defer srv.Close()

	c := New(time.Second, fastPolicy(1))
	var out struct {
		Docs []struct {
			Slug string `json:"slug"`
		} `json:"docs"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "posts", srv.URL, &out))
	require.Len(t, out.Docs, 1)
	assert.Equal(t, "a", out.Docs[0].Slug)
}

func TestGetJSONRetriesServerErrorOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(time.Second, fastPolicy(1))
	var out map[string]bool
	require.NoError(t, c.GetJSON(context.Background(), "x", srv.URL, &out))
	assert.True(t, out["ok"])
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetJSONGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(time.Second, fastPolicy(1))
	err := c.GetJSON(context.Background(), "x", srv.URL, &struct{}{})
	require.Error(t, err)

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusServiceUnavailable, ferr.StatusCode)
	assert.Equal(t, 2, ferr.Attempts)
	assert.True(t, ferr.Transient())
	assert.True(t, errors.Is(err, ErrStatus))
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetJSONDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(time.Second, fastPolicy(3))
	err := c.GetJSON(context.Background(), "x", srv.URL, &struct{}{})
	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.False(t, ferr.Transient())
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetJSONMalformedIsTransientWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := New(time.Second, fastPolicy(3))
	err := c.GetJSON(context.Background(), "x", srv.URL, &struct{}{})
	require.ErrorIs(t, err, ErrDecode)
	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.True(t, ferr.Transient())
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetJSONTimesOutEachAttempt(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(20*time.Millisecond, fastPolicy(1))
	start := time.Now()
	err := c.GetJSON(context.Background(), "x", srv.URL, &struct{}{})
	require.Error(t, err)
	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 2, ferr.Attempts)
	assert.True(t, ferr.Transient())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGetJSONObservesOncePerCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var seen []string
	c := New(time.Second, fastPolicy(2))
	c.Observe = func(endpoint string, d time.Duration, err error) {
		seen = append(seen, endpoint)
		assert.Error(t, err)
	}
	_ = c.GetJSON(context.Background(), "categories", srv.URL, &struct{}{})
	assert.Equal(t, []string{"categories"}, seen)
}

func TestGetJSONUnreachableHost(t *testing.T) {
	c := New(time.Second, fastPolicy(0))
	err := c.GetJSON(context.Background(), "x", "/api/posts", &struct{}{})
	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.True(t, ferr.Transient())
}
