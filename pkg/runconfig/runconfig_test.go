package runconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultScenario(t *testing.T) {
	cfg := Default()

	if cfg.Model.NumLayers != 32 {
		t.Errorf("model.num_layers = %d, want 32", cfg.Model.NumLayers)
	}
	if cfg.Model.HiddenSize != 4096 {
		t.Errorf("model.hidden_size = %d, want 4096", cfg.Model.HiddenSize)
	}
	if cfg.Model.Optim.Sched.Name != "CosineAnnealing" {
		t.Errorf("model.optim.sched.name = %q, want CosineAnnealing", cfg.Model.Optim.Sched.Name)
	}
	if got := cfg.Trainer.Devices * cfg.Trainer.NumNodes; got != 32 {
		t.Errorf("devices * num_nodes = %d, want 32", got)
	}
}

func TestDefaultTemplateDecodesToDefault(t *testing.T) {
	doc, err := DefaultDocument()
	if err != nil {
		t.Fatalf("DefaultDocument failed: %v", err)
	}

	cfg, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("decoded template disagrees with Default() (-want +got):\n%s", diff)
	}
}

func TestDefaultIsValid(t *testing.T) {
	findings := Default().Validate()
	if len(findings) != 0 {
		t.Errorf("default config has %d findings:", len(findings))
		for _, f := range findings {
			t.Errorf("  %s", f)
		}
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Default()

	if got := cfg.WorldSize(); got != 32 {
		t.Errorf("WorldSize = %d, want 32", got)
	}
	if got := cfg.ModelParallelSize(); got != 4 {
		t.Errorf("ModelParallelSize = %d, want 4", got)
	}
	if got := cfg.DataParallelSize(); got != 8 {
		t.Errorf("DataParallelSize = %d, want 8", got)
	}
	if got := cfg.GradAccumSteps(); got != 8 {
		t.Errorf("GradAccumSteps = %d, want 8", got)
	}
	if got := cfg.KVChannelsOrDefault(); got != 128 {
		t.Errorf("KVChannelsOrDefault = %d, want 128", got)
	}

	explicit := 64
	cfg.Model.KVChannels = &explicit
	if got := cfg.KVChannelsOrDefault(); got != 64 {
		t.Errorf("KVChannelsOrDefault with explicit value = %d, want 64", got)
	}
}

func TestSplitRatios(t *testing.T) {
	cfg := Default()

	ratios, err := cfg.SplitRatios()
	if err != nil {
		t.Fatalf("SplitRatios failed: %v", err)
	}
	if diff := cmp.Diff([]int{900, 50, 50}, ratios); diff != "" {
		t.Errorf("ratios mismatch (-want +got):\n%s", diff)
	}

	cfg.Model.Data.SplitsString = "90,not_a_number,5"
	if _, err := cfg.SplitRatios(); err == nil {
		t.Errorf("expected parse error for malformed splits_string")
	}
}

func TestValidateCatchesViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RunConfig)
		path   string
	}{
		{
			name:   "parallel layout does not divide world",
			mutate: func(c *RunConfig) { c.Model.TensorModelParallelSize = 5 },
			path:   "model.tensor_model_parallel_size",
		},
		{
			name:   "unknown precision",
			mutate: func(c *RunConfig) { c.Trainer.Precision = "fp8" },
			path:   "trainer.precision",
		},
		{
			name:   "splits do not sum to a whole",
			mutate: func(c *RunConfig) { c.Model.Data.SplitsString = "900,50,49" },
			path:   "model.data.splits_string",
		},
		{
			name:   "two-way split",
			mutate: func(c *RunConfig) { c.Model.Data.SplitsString = "950,50" },
			path:   "model.data.splits_string",
		},
		{
			name:   "sequence parallel without tensor parallelism",
			mutate: func(c *RunConfig) { c.Model.TensorModelParallelSize = 1; c.Model.PipelineModelParallelSize = 4 },
			path:   "model.sequence_parallel",
		},
		{
			name:   "grad accumulation not delegated",
			mutate: func(c *RunConfig) { c.Trainer.AccumulateGradBatches = 4 },
			path:   "trainer.accumulate_grad_batches",
		},
		{
			name:   "min_lr above lr",
			mutate: func(c *RunConfig) { c.Model.Optim.Sched.MinLr = 1.0 },
			path:   "model.optim.sched.min_lr",
		},
		{
			name:   "checkpoint monitor missing",
			mutate: func(c *RunConfig) { c.ExpManager.CheckpointCallbackParams.Monitor = "" },
			path:   "exp_manager.checkpoint_callback_params.monitor",
		},
		{
			name:   "stale model_parallel_size",
			mutate: func(c *RunConfig) { c.ExpManager.CheckpointCallbackParams.ModelParallelSize = 8 },
			path:   "exp_manager.checkpoint_callback_params.model_parallel_size",
		},
		{
			name:   "hidden size not divisible by heads",
			mutate: func(c *RunConfig) { c.Model.HiddenSize = 100; c.Model.NumAttentionHeads = 32 },
			path:   "model.hidden_size",
		},
		{
			name:   "seq_length disagrees with encoder_seq_length",
			mutate: func(c *RunConfig) { c.Model.Data.SeqLength = 2048 },
			path:   "model.data.seq_length",
		},
		{
			name:   "huggingface tokenizer without type",
			mutate: func(c *RunConfig) { c.Model.Tokenizer.Type = nil },
			path:   "model.tokenizer.type",
		},
		{
			name:   "nsys window inverted",
			mutate: func(c *RunConfig) { c.Model.NsysProfile.StartStep = 20; c.Model.NsysProfile.EndStep = 10 },
			path:   "model.nsys_profile.end_step",
		},
		{
			name:   "warmup plus constant exceeds max_steps",
			mutate: func(c *RunConfig) { c.Model.Optim.Sched.WarmupSteps = 150; c.Model.Optim.Sched.ConstantSteps = 100 },
			path:   "model.optim.sched.warmup_steps",
		},
		{
			name:   "negative gradient clip",
			mutate: func(c *RunConfig) { c.Trainer.GradientClipVal = -1 },
			path:   "trainer.gradient_clip_val",
		},
		{
			name:   "beta out of range",
			mutate: func(c *RunConfig) { c.Model.Optim.Betas = []float64{0.9, 1.0} },
			path:   "model.optim.betas.1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			errs := Errors(cfg.Validate())
			if len(errs) == 0 {
				t.Fatalf("expected at least one error finding")
			}
			for _, f := range errs {
				if f.Path == tc.path {
					return
				}
			}
			t.Errorf("no error at %s; got %v", tc.path, errs)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Model.NsysProfile.Enabled = true

	findings := cfg.Validate()
	if len(Errors(findings)) != 0 {
		t.Fatalf("unexpected errors: %v", Errors(findings))
	}

	found := false
	for _, f := range findings {
		if f.Warning && f.Path == "model.nsys_profile.enabled" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about enabled profiling, got %v", findings)
	}
}

func TestValidateWarnsOnMismatchedKVChannels(t *testing.T) {
	cfg := Default()
	kv := 64
	cfg.Model.KVChannels = &kv

	findings := cfg.Validate()
	if len(Errors(findings)) != 0 {
		t.Fatalf("unexpected errors: %v", Errors(findings))
	}

	for _, f := range findings {
		if f.Warning && f.Path == "model.kv_channels" {
			return
		}
	}
	t.Errorf("expected a kv_channels warning, got %v", findings)
}

func TestLoadResolvesInterpolation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, DefaultTemplate(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.ExpManager.CheckpointCallbackParams.ModelParallelSize; got != 4 {
		t.Errorf("model_parallel_size = %d, want 4", got)
	}

	raw, ok := doc.Scalar("exp_manager.checkpoint_callback_params.model_parallel_size")
	if !ok {
		t.Fatalf("resolved scalar missing from document")
	}
	if raw != 4 {
		t.Errorf("document scalar = %v, want 4", raw)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")

	input := strings.Replace(string(DefaultTemplate()), "  devices: 8", "  devices: 8\n  warp_factor: 9", 1)
	if err := os.WriteFile(path, []byte(input), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestSummarize(t *testing.T) {
	s := Default().Summarize()

	if s.Name != DefaultName {
		t.Errorf("name = %q, want %q", s.Name, DefaultName)
	}
	if s.WorldSize != 32 || s.TensorParallel != 4 || s.PipelineParallel != 1 || s.DataParallel != 8 {
		t.Errorf("parallel summary = %d/%d/%d/%d, want 32/4/1/8", s.WorldSize, s.TensorParallel, s.PipelineParallel, s.DataParallel)
	}
	if s.Sched != "CosineAnnealing" {
		t.Errorf("sched = %q, want CosineAnnealing", s.Sched)
	}
	if s.Tokenizer != "huggingface:NousResearch/Llama-2-7b-hf" {
		t.Errorf("tokenizer = %q", s.Tokenizer)
	}
	if len(s.ConfigHash) != 16 {
		t.Errorf("config hash %q, want 16 hex chars", s.ConfigHash)
	}
}

func TestHashTracksContent(t *testing.T) {
	a := Hash([]byte("one"))
	b := Hash([]byte("one"))
	c := Hash([]byte("two"))

	if a != b {
		t.Errorf("hash is not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different content produced the same hash %q", a)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg2, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load of encoded config failed: %v", err)
	}
	if diff := cmp.Diff(cfg, cfg2); diff != "" {
		t.Errorf("encode/load round trip changed the config (-want +got):\n%s", diff)
	}
}
