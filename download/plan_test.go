package download

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollins476ad/albumgrab/fileutil"
)

func TestPlanCreatesAlbumDir(t *testing.T) {
	root := t.TempDir()
	p := NewPlanner(root)

	dest, err := p.Plan("12345", 0, "12345_p0_master1200.jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "12345", "000_12345_p0_master1200.jpg"), dest)
	assert.True(t, fileutil.FileExists(filepath.Join(root, "12345")))
}

func TestPlanFallbackFilename(t *testing.T) {
	p := NewPlanner(t.TempDir())

	dest, err := p.Plan("12345", 7, "")
	require.NoError(t, err)
	assert.Equal(t, "12345_007", filepath.Base(dest))
}

func TestPlanCollidingSuggestions(t *testing.T) {
	p := NewPlanner(t.TempDir())

	// Two assets with the same suggested name must get distinct paths.
	a, err := p.Plan("12345", 0, "image.jpg")
	require.NoError(t, err)
	b, err := p.Plan("12345", 1, "image.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPlanSanitizesFilename(t *testing.T) {
	p := NewPlanner(t.TempDir())

	dest, err := p.Plan("12345", 0, "a/b:c*d.jpg")
	require.NoError(t, err)

	base := filepath.Base(dest)
	assert.NotContains(t, base, "/")
	assert.NotContains(t, base, ":")
	assert.NotContains(t, base, "*")
}

func TestPlanConcurrentSameAlbum(t *testing.T) {
	p := NewPlanner(t.TempDir())

	const n = 16
	var wg sync.WaitGroup
	dests := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dest, err := p.Plan("12345", i, fmt.Sprintf("img%d.jpg", i))
			assert.NoError(t, err)
			dests[i] = dest
		}(i)
	}
	wg.Wait()

	seen := map[string]struct{}{}
	for _, d := range dests {
		_, dup := seen[d]
		assert.False(t, dup, "duplicate planned path: %s", d)
		seen[d] = struct{}{}
	}
}
