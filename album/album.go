// Package album ties the pipeline together for one album URL: dedup check,
// asset resolution, parallel download, and ledger recording.
package album

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ccollins476ad/albumgrab/download"
	"github.com/ccollins476ad/albumgrab/ledger"
	"github.com/ccollins476ad/albumgrab/progress"
	"github.com/ccollins476ad/albumgrab/resolve"
	"github.com/ccollins476ad/albumgrab/web"
)

// ErrAlreadyDone indicates the album is recorded in the ledger and no work
// was performed.
var ErrAlreadyDone = errors.New("album already downloaded")

// ResolutionError indicates the album page could not be retrieved or
// understood. It aborts that album only; a batch continues with the next.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve album %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Identify derives the album identifier from an album URL. The identifier
// combines the site's hostname with the URL's last path segment, so distinct
// sites using the same album slug never collide in the ledger or on disk.
// Query strings, fragments, trailing slashes, and a leading "www." are
// discarded, so URL variants referring to the same remote album normalize
// identically.
func Identify(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid album url: %v", err)
	}

	p := strings.TrimSuffix(u.Path, "/")
	slug := p[strings.LastIndex(p, "/")+1:]
	if slug == "" {
		return "", fmt.Errorf("album url has no identifier: %s", rawURL)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host == "" {
		return slug, nil
	}

	return host + "_" + slug, nil
}

// Orchestrator processes one album at a time. It is safe to call Process
// from multiple goroutines; the ledger and progress sink serialize their own
// state.
type Orchestrator struct {
	ledger   *ledger.Ledger
	resolver resolve.Resolver
	planner  *download.Planner
	pool     *download.Pool
	sink     progress.Sink
}

func NewOrchestrator(l *ledger.Ledger, r resolve.Resolver, p *download.Planner, pool *download.Pool, sink progress.Sink) *Orchestrator {
	if sink == nil {
		sink = progress.Discard
	}
	return &Orchestrator{
		ledger:   l,
		resolver: r,
		planner:  p,
		pool:     pool,
		sink:     sink,
	}
}

// Process downloads the album at the given URL. It returns ErrAlreadyDone
// without any network calls if the album is recorded in the ledger. The
// album is recorded only if every asset succeeds; a partially failed album
// stays unrecorded so a future run retries it.
func (o *Orchestrator) Process(ctx context.Context, rawURL string) (download.Result, error) {
	id, err := Identify(rawURL)
	if err != nil {
		return download.Result{}, &ResolutionError{URL: rawURL, Err: err}
	}

	if o.ledger.Contains(id) {
		log.Infof("album has already been downloaded: id=%s url=%s", id, rawURL)
		return download.Result{AlbumID: id}, ErrAlreadyDone
	}

	refs, err := o.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return download.Result{}, &ResolutionError{URL: rawURL, Err: err}
	}
	if refs == nil {
		return download.Result{}, &ResolutionError{URL: rawURL, Err: errors.New("no resolver recognizes this url")}
	}

	tasks := make([]download.Task, 0, len(refs))
	for i, ref := range refs {
		dest, err := o.planner.Plan(id, i, ref.Filename)
		if err != nil {
			return download.Result{}, err
		}
		tasks = append(tasks, download.Task{
			URL:   ref.URL,
			Dest:  dest,
			Index: i,
		})
	}

	log.Infof("downloading album: id=%s assets=%d", id, len(tasks))

	// The aggregate tracker and the configured surface are independent
	// consumers of the same event stream.
	tracker := progress.NewTracker(id)
	res := o.pool.Run(ctx, id, tasks, progress.Multi(tracker, o.sink))

	snap := tracker.Snapshot()
	log.Debugf("album finished: id=%s done=%d errored=%d skipped=%d bytes=%d",
		id, snap.Done, snap.Errored, snap.Skipped, snap.Bytes)

	if !res.Complete() {
		log.Warnf("album incomplete, not recording: id=%s failed=%d", id, len(res.Failed))
		return res, nil
	}

	if err := o.writeGallery(id, tasks); err != nil {
		// The assets themselves are intact; a missing gallery is not
		// worth failing the album over.
		log.WithError(err).Warnf("failed to write album gallery: id=%s", id)
	}

	if err := o.ledger.Record(id); err != nil {
		return res, err
	}

	return res, nil
}

// writeGallery drops an index.html into the album directory referencing
// every downloaded asset in sequence order.
func (o *Orchestrator) writeGallery(id string, tasks []download.Task) error {
	sorted := append([]download.Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	filenames := make([]string, 0, len(sorted))
	for _, t := range sorted {
		filenames = append(filenames, filepath.Base(t.Dest))
	}

	gallery := web.BuildGallery(filenames)
	return os.WriteFile(filepath.Join(o.planner.AlbumDir(id), "index.html"), []byte(gallery), 0644)
}
