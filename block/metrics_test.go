package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Run("PrometheusMetrics", func(t *testing.T) {
		em := PrometheusMetrics("block_test", "chain_id", "test_chain")

		assert.NotNil(t, em.CommittedHeight)
		assert.NotNil(t, em.NumTxs)
		assert.NotNil(t, em.OrderedBlocks)
		assert.NotNil(t, em.ComputedBlocks)
		assert.NotNil(t, em.CommittedBlocks)
		assert.NotNil(t, em.IngestedTxs)
		assert.NotNil(t, em.QueuedTxs)

		// Updating registered metrics must not panic
		em.CommittedHeight.Set(10)
		em.OrderedBlocks.Add(1)
	})

	t.Run("NopMetrics", func(t *testing.T) {
		em := NopMetrics()
		assert.NotNil(t, em.CommittedHeight)
		assert.NotNil(t, em.QueuedTxs)

		em.CommittedHeight.Set(1)
		em.IngestedTxs.Add(3)
	})
}
