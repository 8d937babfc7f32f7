package mailsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntoBatches(t *testing.T) {
	gov := NewGovernor()

	uids := make([]uint32, 120)
	for i := range uids {
		uids[i] = uint32(i + 1)
	}

	batches := gov.SplitIntoBatches(uids)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 50)
	assert.Len(t, batches[1], 50)
	assert.Len(t, batches[2], 20)

	// Order is preserved across batch boundaries.
	assert.Equal(t, uint32(1), batches[0][0])
	assert.Equal(t, uint32(51), batches[1][0])
	assert.Equal(t, uint32(120), batches[2][19])
}

func TestSplitIntoBatchesEmpty(t *testing.T) {
	gov := NewGovernor()
	assert.Empty(t, gov.SplitIntoBatches(nil))
	assert.Empty(t, gov.SplitIntoBatches([]uint32{}))
}

func TestSplitIntoBatchesSmallerThanBatch(t *testing.T) {
	gov := NewGovernor()
	batches := gov.SplitIntoBatches([]uint32{7, 8, 9})
	require.Len(t, batches, 1)
	assert.Equal(t, []uint32{7, 8, 9}, batches[0])
}

func TestAdjustBatchSize(t *testing.T) {
	gov := NewGovernor()

	// High usage halves down to the floor of 10.
	assert.Equal(t, 25, gov.adjustFor(75))
	assert.Equal(t, 12, gov.adjustFor(90))
	assert.Equal(t, 10, gov.adjustFor(90))
	assert.Equal(t, 10, gov.adjustFor(99))

	// Low usage doubles up to the ceiling of 100.
	assert.Equal(t, 20, gov.adjustFor(10))
	assert.Equal(t, 40, gov.adjustFor(10))
	assert.Equal(t, 80, gov.adjustFor(10))
	assert.Equal(t, 100, gov.adjustFor(10))
	assert.Equal(t, 100, gov.adjustFor(10))

	// Mid-range leaves the size alone.
	assert.Equal(t, 100, gov.adjustFor(55))
}

func TestMemoryUsagePercent(t *testing.T) {
	gov := NewGovernor()
	usage := gov.MemoryUsagePercent()
	assert.GreaterOrEqual(t, usage, 0.0)
	assert.Less(t, usage, 100.0)
}
