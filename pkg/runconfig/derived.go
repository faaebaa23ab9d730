package runconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// The training framework derives several quantities from the document at
// startup. These helpers make the same derivations available to callers
// without materializing them into the document, so a null on disk stays
// null.

// WorldSize is the total device count across all nodes.
func (c *RunConfig) WorldSize() int {
	return c.Trainer.Devices * c.Trainer.NumNodes
}

// ModelParallelSize is the number of devices one model replica spans.
func (c *RunConfig) ModelParallelSize() int {
	return c.Model.TensorModelParallelSize * c.Model.PipelineModelParallelSize
}

// DataParallelSize is the number of model replicas, 0 when the parallel
// layout does not divide the world size.
func (c *RunConfig) DataParallelSize() int {
	mp := c.ModelParallelSize()
	if mp <= 0 || c.WorldSize()%mp != 0 {
		return 0
	}
	return c.WorldSize() / mp
}

// KVChannelsOrDefault returns kv_channels, falling back to
// hidden_size / num_attention_heads when the document leaves it null.
func (c *RunConfig) KVChannelsOrDefault() int {
	if c.Model.KVChannels != nil {
		return *c.Model.KVChannels
	}
	if c.Model.NumAttentionHeads == 0 {
		return 0
	}
	return c.Model.HiddenSize / c.Model.NumAttentionHeads
}

// GradAccumSteps is the number of micro batches each replica accumulates
// per optimization step.
func (c *RunConfig) GradAccumSteps() int {
	dp := c.DataParallelSize()
	if dp == 0 || c.Model.MicroBatchSize == 0 {
		return 0
	}
	perStep := c.Model.MicroBatchSize * dp
	if c.Model.GlobalBatchSize%perStep != 0 {
		return 0
	}
	return c.Model.GlobalBatchSize / perStep
}

// SplitRatios parses splits_string ("900,50,50") into its integer parts.
func (c *RunConfig) SplitRatios() ([]int, error) {
	parts := strings.Split(c.Model.Data.SplitsString, ",")
	ratios := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid splits_string %q: %w", c.Model.Data.SplitsString, err)
		}
		ratios = append(ratios, n)
	}
	return ratios, nil
}
