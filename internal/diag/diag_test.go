package diag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticMessage(t *testing.T) {
	d := New(TypeMismatch, Span{Start: 3, End: 7}, "int32", "string")
	assert.Equal(t, "type mismatch: expected int32, got string", d.Message())
	assert.Equal(t, "DR0201", d.Code())
	assert.Equal(t, Error, d.Severity())
	assert.Equal(t, 4, d.Span.Len())
}

func TestWithOffset(t *testing.T) {
	d := New(ExpectedToken, Span{Start: 2, End: 5}, ";")
	moved := d.WithOffset(10)
	assert.Equal(t, Span{Start: 12, End: 15}, moved.Span)
	// The original is untouched; offset zero returns the receiver.
	assert.Equal(t, Span{Start: 2, End: 5}, d.Span)
	assert.Same(t, d, d.WithOffset(0))
}

func TestBagAppendOnly(t *testing.T) {
	bag := NewBag()
	bag.AddNew(UnreachableCode, Span{})
	bag.AddNew(TypeMismatch, Span{}, "a", "b")

	require.Equal(t, 2, bag.Len())
	assert.True(t, bag.HasErrors())

	warnOnly := NewBag()
	warnOnly.AddNew(UnreachableCode, Span{})
	assert.False(t, warnOnly.HasErrors())
}

func TestBagConcurrentAppends(t *testing.T) {
	bag := NewBag()
	const workers = 8
	const each = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				bag.AddNew(UndefinedReference, Span{}, "x")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*each, bag.Len())
}

func TestBagSnapshotIsolation(t *testing.T) {
	bag := NewBag()
	bag.AddNew(UndefinedReference, Span{}, "x")
	snapshot := bag.Diagnostics()
	bag.AddNew(UndefinedReference, Span{}, "y")
	assert.Len(t, snapshot, 1)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "info", Info.String())
}
