package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ccollins476ad/albumgrab/fileutil"
	"github.com/ccollins476ad/albumgrab/progress"
)

// RetryPolicy bounds the fetcher's retry loop. It is pure data so tests can
// exercise the loop with a fake transport and no real delays.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first.
	Delay       time.Duration // Pause between attempts.
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delay:       500 * time.Millisecond,
}

// Fetcher retrieves one asset per Fetch call and writes it to its planned
// destination. Transient failures are retried within a single Fetch;
// permanent failures are not.
type Fetcher struct {
	hc      *http.Client
	header  http.Header
	retry   RetryPolicy
	timeout time.Duration // Per-attempt timeout.
}

func NewFetcher(hc *http.Client, header http.Header, retry RetryPolicy, timeout time.Duration) *Fetcher {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Fetcher{
		hc:      hc,
		header:  header,
		retry:   retry,
		timeout: timeout,
	}
}

// Fetch retrieves the task's URL and writes it to the task's destination
// path. It emits a progress event when the transfer starts and another at
// the terminal state. Errors never escape as errors; they are folded into
// the returned outcome.
//
// The body is streamed to a temporary file in the destination directory and
// renamed into place only after the full transfer succeeds, so no partial
// file is ever observable at the final path.
func (f *Fetcher) Fetch(ctx context.Context, albumID string, task Task, sink progress.Sink) Outcome {
	if fileutil.FileExists(task.Dest) {
		log.Debugf("skipping %s: file already exists: %s", task.URL, task.Dest)
		sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.Skipped})
		return Outcome{Task: task, Status: Skipped, Err: errors.New("destination already exists")}
	}

	sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.InFlight})

	var n int64
	var err error
	for attempt := 1; ; attempt++ {
		n, err = f.fetchOnce(ctx, task)
		if err == nil {
			break
		}

		if !isTemporary(err) || attempt >= f.retry.MaxAttempts || ctx.Err() != nil {
			sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.Errored, Err: err})
			return Outcome{Task: task, Status: Failed, Err: err}
		}

		log.Debugf("retrying asset: url=%s attempt=%d err=%v", task.URL, attempt, err)
		select {
		case <-ctx.Done():
			sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.Errored, Err: ctx.Err()})
			return Outcome{Task: task, Status: Failed, Err: ctx.Err()}
		case <-time.After(f.retry.Delay):
		}
	}

	sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.Done, Bytes: n})
	return Outcome{Task: task, Status: Success, Bytes: n}
}

// fetchOnce performs a single retrieval attempt. It returns the number of
// bytes written to the destination.
func (f *Fetcher) fetchOnce(ctx context.Context, task Task) (int64, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	body, err := GetBody(ctx, f.hc, task.URL, f.header)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	return writeFileAtomic(task.Dest, NewContextReader(ctx, body))
}

// writeFileAtomic streams r to a temporary file in dest's directory, then
// renames it into place. On any failure the temporary file is removed and
// dest is left untouched. The temporary file must live in the same directory
// as dest for the rename to be atomic.
func writeFileAtomic(dest string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write response body: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync temp file: %v", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %v", err)
	}

	return n, nil
}

// isTemporary classifies an error as worth retrying. Server-side 5xx
// responses, timeouts, and connection-level failures are temporary; 4xx
// responses and malformed URLs are permanent.
func isTemporary(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Op == "parse" {
		return false
	}

	// Everything else is transport-level (timeout, connection reset, EOF
	// mid-body) and worth another attempt.
	return true
}
