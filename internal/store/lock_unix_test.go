//go:build unix

package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/ws/internal/model"
)

// TestTrack_Concurrent verifies that concurrent tracks serialize on the
// manifest lock and no update is lost.
func TestTrack_Concurrent(t *testing.T) {
	e := newTestEngine(t)
	const n = 16
	for i := 0; i < n; i++ {
		writeFile(t, e.WorktreeRoot, fmt.Sprintf("f%02d", i), "x")
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engine := &Engine{Store: New(e.Store.Dir), WorktreeRoot: e.WorktreeRoot}
			_, err := engine.Track(model.StrategyCopy, fmt.Sprintf("f%02d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, readManifest(t, e.Store), n)
}
