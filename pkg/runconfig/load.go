package runconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/samogod/trainconf/pkg/document"
	"github.com/samogod/trainconf/pkg/interp"
	"gopkg.in/yaml.v3"
)

// Decode resolves all placeholders in doc in place and unmarshals the
// resolved tree into a RunConfig. Keys the schema does not declare are
// errors.
func Decode(doc *document.Document) (*RunConfig, error) {
	if err := interp.NewRegistry().Resolve(doc); err != nil {
		return nil, fmt.Errorf("interpolation failed: %w", err)
	}

	var cfg RunConfig
	if err := doc.Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load reads a run document from path and returns both the typed config and
// the resolved raw tree.
func Load(path string) (*RunConfig, *document.Document, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Decode(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, doc, nil
}

// Encode serializes the typed config. Comments from the source document are
// not carried; use the Document form to preserve them.
func (c *RunConfig) Encode() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	return data, nil
}

func (c *RunConfig) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}
	return nil
}

// Summary is a compact digest of a run for display, tracking, and indexing.
type Summary struct {
	Name             string  `json:"name"`
	ConfigHash       string  `json:"config_hash"`
	WorldSize        int     `json:"world_size"`
	TensorParallel   int     `json:"tensor_parallel"`
	PipelineParallel int     `json:"pipeline_parallel"`
	DataParallel     int     `json:"data_parallel"`
	MicroBatchSize   int     `json:"micro_batch_size"`
	GlobalBatchSize  int     `json:"global_batch_size"`
	GradAccumSteps   int     `json:"grad_accum_steps"`
	SeqLength        int     `json:"seq_length"`
	NumLayers        int     `json:"num_layers"`
	HiddenSize       int     `json:"hidden_size"`
	Precision        string  `json:"precision"`
	Optimizer        string  `json:"optimizer"`
	Sched            string  `json:"sched"`
	LearningRate     float64 `json:"lr"`
	Tokenizer        string  `json:"tokenizer"`
	MaxSteps         int     `json:"max_steps"`
}

func (c *RunConfig) Summarize() Summary {
	tokenizer := c.Model.Tokenizer.Library
	if c.Model.Tokenizer.Type != nil {
		tokenizer = fmt.Sprintf("%s:%s", tokenizer, *c.Model.Tokenizer.Type)
	}

	data, err := c.Encode()
	hash := ""
	if err == nil {
		hash = Hash(data)
	}

	return Summary{
		Name:             c.Name,
		ConfigHash:       hash,
		WorldSize:        c.WorldSize(),
		TensorParallel:   c.Model.TensorModelParallelSize,
		PipelineParallel: c.Model.PipelineModelParallelSize,
		DataParallel:     c.DataParallelSize(),
		MicroBatchSize:   c.Model.MicroBatchSize,
		GlobalBatchSize:  c.Model.GlobalBatchSize,
		GradAccumSteps:   c.GradAccumSteps(),
		SeqLength:        c.Model.Data.SeqLength,
		NumLayers:        c.Model.NumLayers,
		HiddenSize:       c.Model.HiddenSize,
		Precision:        c.Trainer.Precision,
		Optimizer:        c.Model.Optim.Name,
		Sched:            c.Model.Optim.Sched.Name,
		LearningRate:     c.Model.Optim.Lr,
		Tokenizer:        tokenizer,
		MaxSteps:         c.Trainer.MaxSteps,
	}
}

// Hash is the identity of one configuration state: sha256 over the encoded
// document, hex-encoded and truncated for display.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
