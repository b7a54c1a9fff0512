package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollins476ad/albumgrab/progress"
)

// eventLog is a progress sink that records every event it receives.
type eventLog struct {
	mtx    sync.Mutex
	events []progress.Event
}

func (e *eventLog) OnEvent(ev progress.Event) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) states() []progress.State {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	var states []progress.State
	for _, ev := range e.events {
		states = append(states, ev.State)
	}
	return states
}

func testRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond}
}

func TestFetchSuccess(t *testing.T) {
	body := []byte("fake image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(3), time.Second)

	sink := &eventLog{}
	oc := f.Fetch(context.Background(), "111", Task{URL: srv.URL, Dest: dest, Index: 0}, sink)

	require.NoError(t, oc.Err)
	assert.Equal(t, Success, oc.Status)
	assert.Equal(t, int64(len(body)), oc.Bytes)

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, b)

	assert.Equal(t, []progress.State{progress.InFlight, progress.Done}, sink.states())
}

func TestFetchRetriesServerError(t *testing.T) {
	var mtx sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mtx.Lock()
		requests++
		n := requests
		mtx.Unlock()

		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(3), time.Second)

	oc := f.Fetch(context.Background(), "111", Task{URL: srv.URL, Dest: dest, Index: 0}, progress.Discard)

	assert.Equal(t, Success, oc.Status)
	assert.Equal(t, 3, requests)
}

func TestFetchExhaustsRetries(t *testing.T) {
	var mtx sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mtx.Lock()
		requests++
		mtx.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(3), time.Second)

	oc := f.Fetch(context.Background(), "111", Task{URL: srv.URL, Dest: dest, Index: 0}, progress.Discard)

	assert.Equal(t, Failed, oc.Status)
	require.Error(t, oc.Err)
	assert.Equal(t, 3, requests)
	assert.NoFileExists(t, dest)
}

func TestFetchPermanentErrorNoRetry(t *testing.T) {
	var mtx sync.Mutex
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mtx.Lock()
		requests++
		mtx.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(3), time.Second)

	sink := &eventLog{}
	oc := f.Fetch(context.Background(), "111", Task{URL: srv.URL, Dest: dest, Index: 0}, sink)

	assert.Equal(t, Failed, oc.Status)
	assert.Equal(t, 1, requests, "4xx responses must not be retried")
	assert.Equal(t, []progress.State{progress.InFlight, progress.Errored}, sink.states())
}

func TestFetchInterruptedTransferLeavesNoPartialFile(t *testing.T) {
	// The server advertises more bytes than it sends, then drops the
	// connection mid-body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(1), time.Second)

	oc := f.Fetch(context.Background(), "111", Task{URL: srv.URL, Dest: dest, Index: 0}, progress.Discard)

	assert.Equal(t, Failed, oc.Status)
	assert.NoFileExists(t, dest, "no partial file may be observable at the final path")

	// The temp file must be cleaned up too.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchSkipsExistingDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "asset.jpg")
	require.NoError(t, os.WriteFile(dest, []byte("previous run"), 0644))

	// No server: a skip must not touch the network.
	f := NewFetcher(&http.Client{}, nil, testRetryPolicy(1), time.Second)

	sink := &eventLog{}
	oc := f.Fetch(context.Background(), "111", Task{URL: "http://127.0.0.1:0/none", Dest: dest, Index: 0}, sink)

	assert.Equal(t, Skipped, oc.Status)
	assert.Equal(t, []progress.State{progress.Skipped}, sink.states())

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(b))
}

func TestFetchContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "asset.jpg")
	f := NewFetcher(srv.Client(), nil, testRetryPolicy(3), time.Second)

	oc := f.Fetch(ctx, "111", Task{URL: srv.URL, Dest: dest, Index: 0}, progress.Discard)

	assert.Equal(t, Failed, oc.Status)
	assert.NoFileExists(t, dest)
}
