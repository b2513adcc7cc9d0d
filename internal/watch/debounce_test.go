package watch

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, d *Debouncer) []Event {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_BatchesEventsWithinWindow(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "a.go", Op: OpModify})
	d.Add(Event{Path: "b.go", Op: OpCreate})

	batch := collectBatch(t, d)
	require.Len(t, batch, 2)

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	assert.Equal(t, "a.go", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Op)
	assert.Equal(t, "b.go", batch[1].Path)
	assert.Equal(t, OpCreate, batch[1].Op)
}

func TestDebouncer_CreateThenModifyIsCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "a.go", Op: OpCreate})
	d.Add(Event{Path: "a.go", Op: OpModify})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Op)
}

func TestDebouncer_CreateThenDeleteCancelsOut(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "tmp.go", Op: OpCreate})
	d.Add(Event{Path: "tmp.go", Op: OpDelete})
	d.Add(Event{Path: "keep.go", Op: OpModify})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "keep.go", batch[0].Path)
}

func TestDebouncer_DeleteThenCreateIsModify(t *testing.T) {
	// Editors that save by replace emit delete + create; the index sees a
	// plain modification.
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "a.go", Op: OpDelete})
	d.Add(Event{Path: "a.go", Op: OpCreate})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Op)
}

func TestDebouncer_ModifyThenDeleteIsDelete(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(Event{Path: "a.go", Op: OpModify})
	d.Add(Event{Path: "a.go", Op: OpDelete})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Op)
}

func TestDebouncer_AddAfterStopIsIgnored(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	d.Add(Event{Path: "a.go", Op: OpModify})

	_, open := <-d.Output()
	assert.False(t, open, "output channel must be closed after Stop")
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "UNKNOWN", Op(42).String())
}
