package download

// Task is the unit of work representing one asset's planned download. It is
// created by the album resolver and consumed exactly once by the pool; it is
// never mutated after creation.
type Task struct {
	URL   string // Source URL of the asset.
	Dest  string // Absolute destination path on disk.
	Index int    // Sequence index of the asset within its album.
}

// Status is the terminal state of one task.
type Status int

const (
	// Success means the asset was fully transferred and moved into place.
	Success Status = iota

	// Failed means the asset could not be retrieved after exhausting
	// retries, or failed permanently.
	Failed

	// Skipped means no transfer was attempted, e.g. the destination file
	// already exists from a previous run.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the finalized result of one task. Retries happen inside the
// fetcher before an outcome is emitted; an outcome is never retried.
type Outcome struct {
	Task   Task
	Status Status
	Bytes  int64 // Bytes written to disk; 0 unless Status==Success.
	Err    error // Failure reason; nil unless Status==Failed or Skipped.
}

// Result aggregates the outcomes of every task in one album. Every task is
// accounted for exactly once, regardless of completion order.
type Result struct {
	AlbumID   string
	Total     int
	Succeeded int
	Skipped   int
	Failed    []Outcome
}

// Complete returns true if no task in the album failed. A complete album is
// eligible for recording in the dedup ledger.
func (r *Result) Complete() bool {
	return len(r.Failed) == 0
}
