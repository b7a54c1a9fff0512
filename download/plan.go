package download

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flytam/filenamify"
)

// Planner maps an album identifier and asset index to a destination path
// under a fixed root directory. All tasks of one album land in
// <root>/<albumID>/.
type Planner struct {
	root string
}

func NewPlanner(root string) *Planner {
	return &Planner{root: root}
}

// AlbumDir returns the directory that holds all assets of the given album.
func (p *Planner) AlbumDir(albumID string) string {
	return filepath.Join(p.root, albumID)
}

// Plan returns the destination path for one asset and guarantees the parent
// directory exists. Directory creation is idempotent, so concurrent calls
// for the same album never fail on a directory another worker just created.
//
// The filename is derived from the suggested name, prefixed with the
// zero-padded sequence index so two assets of one album can never collide.
// An absent or unsanitizable suggestion falls back to <albumID>_<index>.
func (p *Planner) Plan(albumID string, index int, suggested string) (string, error) {
	dir := p.AlbumDir(albumID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create album directory: %v", err)
	}

	name := assetFilename(albumID, index, suggested)
	return filepath.Join(dir, name), nil
}

// assetFilename returns the local filename for one asset. The sequence index
// is always part of the name: suggested filenames come from the remote site
// and may repeat within an album.
func assetFilename(albumID string, index int, suggested string) string {
	fallback := fmt.Sprintf("%s_%03d", albumID, index)
	if suggested == "" {
		return fallback
	}

	name, err := filenamify.Filenamify(suggested, filenamify.Options{})
	if err != nil || name == "" {
		return fallback
	}

	return fmt.Sprintf("%03d_%s", index, name)
}
