package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCounts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := New(&buf, "parsing", 8)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Tick()
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, tr.Count())
	tr.Finish()
}

func TestDisabledTracker(t *testing.T) {
	t.Parallel()

	tr := Disabled()
	tr.Tick()
	tr.Finish()
	assert.Equal(t, 0, tr.Count())

	var none *Tracker
	none.Tick()
	none.Finish()
	assert.Equal(t, 0, none.Count())
}
