package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Ledger is a durable record of album identifiers that have been fully
// downloaded. It is loaded from a newline-delimited file once at startup;
// after that, Record() appends to the file and Contains() consults the
// in-memory set. Only this process is expected to write the file during its
// own lifetime.
type Ledger struct {
	path string

	mtx  sync.Mutex          // Protects the "done" field and the append path.
	done map[string]struct{} // Album identifiers already recorded.
}

// Load reads the ledger file at the given path into memory. A missing file
// is treated as an empty ledger. Duplicate lines are tolerated; blank lines
// and surrounding whitespace are ignored.
func Load(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		done: map[string]struct{}{},
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		l.done[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %v", err)
	}

	log.Debugf("loaded ledger: path=%s entries=%d", path, len(l.done))
	return l, nil
}

// Contains returns true if the given album identifier has already been
// recorded as fully downloaded.
func (l *Ledger) Contains(id string) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	_, ok := l.done[id]
	return ok
}

// Record marks the given album identifier as fully downloaded, appending it
// to the ledger file. It is safe to call from multiple album workflows
// concurrently; appends are serialized so entries never interleave. It is a
// no-op if the identifier is already recorded.
func (l *Ledger) Record(id string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if _, ok := l.done[id]; ok {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("failed to append to ledger: %v", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %v", err)
	}

	l.done[id] = struct{}{}
	log.Debugf("recorded album in ledger: id=%s", id)
	return nil
}

// Len returns the number of albums recorded in the ledger.
func (l *Ledger) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return len(l.done)
}
