package download

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ccollins476ad/albumgrab/progress"
)

// Pool fans an album's tasks out across a bounded set of workers and
// aggregates their outcomes. Task failures never abort sibling tasks; they
// are folded into the result.
type Pool struct {
	fetcher *Fetcher
	workers int
}

func NewPool(fetcher *Fetcher, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		fetcher: fetcher,
		workers: workers,
	}
}

// Run dispatches every task through the pool's workers and blocks until all
// of them reach a terminal state. Tasks are distributed without ordering
// guarantees, but every task is accounted for exactly once in the result.
// Cancelling the context stops dispatching new tasks; in-flight transfers
// finish or time out on their own.
func (p *Pool) Run(ctx context.Context, albumID string, tasks []Task, sink progress.Sink) Result {
	if sink == nil {
		sink = progress.Discard
	}
	for _, t := range tasks {
		sink.OnEvent(progress.Event{AlbumID: albumID, Index: t.Index, State: progress.Queued})
	}

	outcomeChan := make(chan Outcome, len(tasks))

	g := &errgroup.Group{}

	startWorkers := func() {
		taskChan := make(chan Task)
		defer close(taskChan)

		// Create a set of goroutines to fetch assets in parallel. Workers
		// never return an error: a failed fetch is an outcome, not a
		// reason to tear the pool down.
		for i := 0; i < p.workers; i++ {
			g.Go(func() error {
				for task := range taskChan {
					outcomeChan <- p.fetcher.Fetch(ctx, albumID, task, sink)
				}
				return nil
			})
		}

		for _, task := range tasks {
			select {
			case <-ctx.Done():
				// Shutdown requested. Return early to execute the
				// deferred channel close; undispatched tasks are
				// reported as failed below.
				return

			case taskChan <- task:
			}
		}
	}

	startWorkers()
	g.Wait()
	close(outcomeChan)

	res := Result{
		AlbumID: albumID,
		Total:   len(tasks),
	}

	dispatched := map[int]struct{}{}
	for oc := range outcomeChan {
		dispatched[oc.Task.Index] = struct{}{}
		switch oc.Status {
		case Success:
			res.Succeeded++
		case Skipped:
			res.Skipped++
		case Failed:
			res.Failed = append(res.Failed, oc)
		}
	}

	// Tasks never handed to a worker (shutdown mid-album) still count.
	for _, task := range tasks {
		if _, ok := dispatched[task.Index]; !ok {
			log.Debugf("task not dispatched before shutdown: album=%s index=%d", albumID, task.Index)
			sink.OnEvent(progress.Event{AlbumID: albumID, Index: task.Index, State: progress.Errored, Err: ctx.Err()})
			res.Failed = append(res.Failed, Outcome{Task: task, Status: Failed, Err: ctx.Err()})
		}
	}

	return res
}
