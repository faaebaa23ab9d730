package runconfig

import (
	"fmt"
)

// Finding is one validation result. Errors describe documents the training
// framework would reject at load time; warnings describe settings that are
// legal but inert or suspicious.
type Finding struct {
	Path    string
	Message string
	Warning bool
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

var (
	knownPrecisions = map[string]bool{
		"16": true, "16-mixed": true, "bf16": true, "bf16-mixed": true,
		"32": true, "32-true": true,
	}
	knownAccelerators   = map[string]bool{"gpu": true, "cpu": true}
	knownNormalizations = map[string]bool{"layernorm": true, "layernorm1p": true, "rmsnorm": true}
	knownActivations    = map[string]bool{
		"gelu": true, "geglu": true, "swiglu": true, "fast-swiglu": true,
		"reglu": true, "fast-geglu": true, "fast-reglu": true, "squared-relu": true,
	}
	knownPositionEmbeddings = map[string]bool{"learned_absolute": true, "rope": true, "alibi": true}
	knownBlockTypes         = map[string]bool{"pre_ln": true, "post_ln": true, "normformer": true}
	knownAttentionTypes     = map[string]bool{"multihead": true}
	knownDataloaderTypes    = map[string]bool{"single": true, "cyclic": true}
	knownDataImpls          = map[string]bool{"mmap": true, "cached": true, "lazy": true}
	knownTokenizerLibs      = map[string]bool{"huggingface": true, "sentencepiece": true, "megatron": true}
	knownOptimizers         = map[string]bool{
		"distributed_fused_adam": true, "fused_adam": true, "adam": true,
		"adamw": true, "sgd": true,
	}
	knownScheds = map[string]bool{
		"CosineAnnealing": true, "WarmupAnnealing": true, "WarmupHoldPolicy": true,
		"NoamAnnealing": true, "InverseSquareRootAnnealing": true, "PolynomialDecayAnnealing": true,
	}
	knownCheckpointModes = map[string]bool{"min": true, "max": true}
	knownGranularities   = map[string]bool{"selective": true, "full": true}
	knownCkptMethods     = map[string]bool{"uniform": true, "block": true}
)

// Validate checks the document's structural properties and the
// mutual-consistency constraints the training framework enforces at load
// time. All findings are collected; the first error does not stop the pass.
func (c *RunConfig) Validate() []Finding {
	var v findings

	if c.Name == "" {
		v.errorf("name", "run name must not be empty")
	}

	c.validateTrainer(&v)
	c.validateExpManager(&v)
	c.validateModel(&v)
	c.validateTokenizer(&v)
	c.validateData(&v)
	c.validateNsysProfile(&v)
	c.validateOptim(&v)

	return v.all
}

// Errors filters findings down to hard errors.
func Errors(findings []Finding) []Finding {
	var errs []Finding
	for _, f := range findings {
		if !f.Warning {
			errs = append(errs, f)
		}
	}
	return errs
}

type findings struct {
	all []Finding
}

func (v *findings) errorf(path, format string, args ...interface{}) {
	v.all = append(v.all, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *findings) warnf(path, format string, args ...interface{}) {
	v.all = append(v.all, Finding{Path: path, Message: fmt.Sprintf(format, args...), Warning: true})
}

func (c *RunConfig) validateTrainer(v *findings) {
	t := c.Trainer

	if t.Devices <= 0 {
		v.errorf("trainer.devices", "must be positive, got %d", t.Devices)
	}
	if t.NumNodes <= 0 {
		v.errorf("trainer.num_nodes", "must be positive, got %d", t.NumNodes)
	}
	if !knownAccelerators[t.Accelerator] {
		v.errorf("trainer.accelerator", "unknown accelerator %q", t.Accelerator)
	}
	if !knownPrecisions[t.Precision] {
		v.errorf("trainer.precision", "unknown precision %q", t.Precision)
	}
	if t.MaxSteps <= 0 {
		v.errorf("trainer.max_steps", "must be positive, got %d", t.MaxSteps)
	}
	if t.ValCheckInterval <= 0 {
		v.errorf("trainer.val_check_interval", "must be positive, got %d", t.ValCheckInterval)
	} else if t.MaxSteps > 0 && t.ValCheckInterval > t.MaxSteps {
		v.warnf("trainer.val_check_interval", "interval %d exceeds max_steps %d, validation never runs", t.ValCheckInterval, t.MaxSteps)
	}
	if t.AccumulateGradBatches != 1 {
		v.errorf("trainer.accumulate_grad_batches", "must be 1, gradient accumulation is derived from batch geometry")
	}
	if t.GradientClipVal < 0 {
		v.errorf("trainer.gradient_clip_val", "must not be negative, got %v", t.GradientClipVal)
	}
	if t.LogEveryNSteps <= 0 {
		v.errorf("trainer.log_every_n_steps", "must be positive, got %d", t.LogEveryNSteps)
	}
}

func (c *RunConfig) validateExpManager(v *findings) {
	e := c.ExpManager

	if e.Name == "" {
		v.errorf("exp_manager.name", "experiment name must not be empty")
	}

	p := e.CheckpointCallbackParams
	if e.CreateCheckpointCallback {
		if p.Monitor == "" {
			v.errorf("exp_manager.checkpoint_callback_params.monitor", "required when the checkpoint callback is enabled")
		}
		if p.Filename == "" {
			v.errorf("exp_manager.checkpoint_callback_params.filename", "required when the checkpoint callback is enabled")
		}
		if !knownCheckpointModes[p.Mode] {
			v.errorf("exp_manager.checkpoint_callback_params.mode", "must be min or max, got %q", p.Mode)
		}
		if p.SaveTopK == 0 {
			v.warnf("exp_manager.checkpoint_callback_params.save_top_k", "callback enabled but save_top_k is 0, no checkpoints will be kept")
		}
	}
	if p.SaveTopK < -1 {
		v.errorf("exp_manager.checkpoint_callback_params.save_top_k", "must be >= -1, got %d", p.SaveTopK)
	}

	// model_parallel_size is derived from the two parallel degrees via
	// ${multiply:...}; a hand-edited literal that disagrees breaks
	// checkpoint restore.
	if p.ModelParallelSize != c.ModelParallelSize() {
		v.errorf("exp_manager.checkpoint_callback_params.model_parallel_size",
			"is %d but tensor_model_parallel_size * pipeline_model_parallel_size is %d",
			p.ModelParallelSize, c.ModelParallelSize())
	}

	if e.CreateWandbLogger && (e.WandbLoggerKwargs.Project == nil || *e.WandbLoggerKwargs.Project == "") {
		v.warnf("exp_manager.wandb_logger_kwargs.project", "wandb logger enabled without a project")
	}
	if e.LogStepTiming && e.StepTimingKwargs.BufferSize <= 0 {
		v.errorf("exp_manager.step_timing_kwargs.buffer_size", "must be positive when step timing is enabled, got %d", e.StepTimingKwargs.BufferSize)
	}
}

func (c *RunConfig) validateModel(v *findings) {
	m := c.Model

	for path, val := range map[string]int{
		"model.micro_batch_size":             m.MicroBatchSize,
		"model.global_batch_size":            m.GlobalBatchSize,
		"model.tensor_model_parallel_size":   m.TensorModelParallelSize,
		"model.pipeline_model_parallel_size": m.PipelineModelParallelSize,
		"model.num_layers":                   m.NumLayers,
		"model.hidden_size":                  m.HiddenSize,
		"model.ffn_hidden_size":              m.FFNHiddenSize,
		"model.num_attention_heads":          m.NumAttentionHeads,
		"model.encoder_seq_length":           m.EncoderSeqLength,
		"model.max_position_embeddings":      m.MaxPositionEmbeddings,
		"model.make_vocab_size_divisible_by": m.MakeVocabSizeDivisibleBy,
	} {
		if val <= 0 {
			v.errorf(path, "must be positive, got %d", val)
		}
	}

	mp := c.ModelParallelSize()
	if mp > 0 && c.WorldSize()%mp != 0 {
		v.errorf("model.tensor_model_parallel_size",
			"parallel layout %dx%d does not divide world size %d",
			m.TensorModelParallelSize, m.PipelineModelParallelSize, c.WorldSize())
	}

	if dp := c.DataParallelSize(); dp > 0 {
		perStep := m.MicroBatchSize * dp
		if perStep > 0 && m.GlobalBatchSize%perStep != 0 {
			v.errorf("model.global_batch_size",
				"%d is not divisible by micro_batch_size * data_parallel_size (%d * %d)",
				m.GlobalBatchSize, m.MicroBatchSize, dp)
		}
	}

	if m.NumAttentionHeads > 0 && m.HiddenSize%m.NumAttentionHeads != 0 {
		v.errorf("model.hidden_size", "%d is not divisible by num_attention_heads %d", m.HiddenSize, m.NumAttentionHeads)
	}
	if m.KVChannels != nil {
		if *m.KVChannels <= 0 {
			v.errorf("model.kv_channels", "must be positive or null, got %d", *m.KVChannels)
		} else if m.NumAttentionHeads > 0 && *m.KVChannels*m.NumAttentionHeads != m.HiddenSize {
			v.warnf("model.kv_channels", "%d * num_attention_heads %d does not equal hidden_size %d",
				*m.KVChannels, m.NumAttentionHeads, m.HiddenSize)
		}
	}
	if m.PipelineModelParallelSize > 0 && m.NumLayers%m.PipelineModelParallelSize != 0 {
		v.errorf("model.num_layers", "%d is not divisible by pipeline_model_parallel_size %d", m.NumLayers, m.PipelineModelParallelSize)
	}
	if m.VirtualPipelineModelParallelSize != nil && m.PipelineModelParallelSize <= 1 {
		v.errorf("model.virtual_pipeline_model_parallel_size", "requires pipeline_model_parallel_size > 1")
	}

	if m.EncoderSeqLength > m.MaxPositionEmbeddings {
		v.errorf("model.encoder_seq_length", "%d exceeds max_position_embeddings %d", m.EncoderSeqLength, m.MaxPositionEmbeddings)
	}

	if !knownNormalizations[m.Normalization] {
		v.errorf("model.normalization", "unknown normalization %q", m.Normalization)
	}
	if !knownActivations[m.Activation] {
		v.errorf("model.activation", "unknown activation %q", m.Activation)
	}
	if !knownPositionEmbeddings[m.PositionEmbeddingType] {
		v.errorf("model.position_embedding_type", "unknown position embedding type %q", m.PositionEmbeddingType)
	}
	if !knownBlockTypes[m.TransformerBlockType] {
		v.errorf("model.transformer_block_type", "unknown transformer block type %q", m.TransformerBlockType)
	}
	if !knownAttentionTypes[m.AttentionType] {
		v.errorf("model.attention_type", "unknown attention type %q", m.AttentionType)
	}
	if m.PositionEmbeddingType == "rope" && (m.RotaryPercentage <= 0 || m.RotaryPercentage > 1) {
		v.errorf("model.rotary_percentage", "must be in (0, 1], got %v", m.RotaryPercentage)
	}
	if m.LayernormEpsilon <= 0 {
		v.errorf("model.layernorm_epsilon", "must be positive, got %v", m.LayernormEpsilon)
	}

	if m.SequenceParallel && m.TensorModelParallelSize <= 1 {
		v.errorf("model.sequence_parallel", "requires tensor_model_parallel_size > 1")
	}

	if m.ActivationsCheckpointGranularity != nil && !knownGranularities[*m.ActivationsCheckpointGranularity] {
		v.errorf("model.activations_checkpoint_granularity", "must be null, selective, or full, got %q", *m.ActivationsCheckpointGranularity)
	}
	if m.ActivationsCheckpointMethod != nil && !knownCkptMethods[*m.ActivationsCheckpointMethod] {
		v.errorf("model.activations_checkpoint_method", "must be null, uniform, or block, got %q", *m.ActivationsCheckpointMethod)
	}
	if m.ActivationsCheckpointGranularity != nil && *m.ActivationsCheckpointGranularity == "full" &&
		m.ActivationsCheckpointMethod == nil {
		v.errorf("model.activations_checkpoint_method", "required when granularity is full")
	}
	if m.ActivationsCheckpointNumLayers != nil && m.ActivationsCheckpointGranularity == nil {
		v.warnf("model.activations_checkpoint_num_layers", "set but activation checkpointing is disabled")
	}
}

func (c *RunConfig) validateTokenizer(v *findings) {
	tok := c.Model.Tokenizer

	if !knownTokenizerLibs[tok.Library] {
		v.errorf("model.tokenizer.library", "unknown tokenizer library %q", tok.Library)
		return
	}

	switch tok.Library {
	case "huggingface":
		if tok.Type == nil || *tok.Type == "" {
			v.errorf("model.tokenizer.type", "required for the huggingface library")
		}
	case "sentencepiece":
		if tok.Model == nil || *tok.Model == "" {
			v.errorf("model.tokenizer.model", "required for the sentencepiece library")
		}
	case "megatron":
		if tok.VocabFile == nil || *tok.VocabFile == "" {
			v.errorf("model.tokenizer.vocab_file", "required for the megatron library")
		}
	}
}

func (c *RunConfig) validateData(v *findings) {
	d := c.Model.Data

	ratios, err := c.SplitRatios()
	if err != nil {
		v.errorf("model.data.splits_string", "%v", err)
	} else {
		if len(ratios) != 3 {
			v.errorf("model.data.splits_string", "expected train,validation,test ratios, got %d values", len(ratios))
		}
		sum := 0
		for _, r := range ratios {
			if r < 0 {
				v.errorf("model.data.splits_string", "ratio %d is negative", r)
			}
			sum += r
		}
		if sum != 1000 && sum != 100 {
			v.errorf("model.data.splits_string", "ratios sum to %d, expected 1000 or 100", sum)
		}
	}

	if d.SeqLength != c.Model.EncoderSeqLength {
		v.errorf("model.data.seq_length", "%d disagrees with model.encoder_seq_length %d", d.SeqLength, c.Model.EncoderSeqLength)
	}
	if !knownDataImpls[d.DataImpl] {
		v.errorf("model.data.data_impl", "unknown data_impl %q", d.DataImpl)
	}
	if !knownDataloaderTypes[d.DataloaderType] {
		v.errorf("model.data.dataloader_type", "unknown dataloader_type %q", d.DataloaderType)
	}
	if d.NumWorkers < 0 {
		v.errorf("model.data.num_workers", "must not be negative, got %d", d.NumWorkers)
	}
}

func (c *RunConfig) validateNsysProfile(v *findings) {
	n := c.Model.NsysProfile

	if n.StartStep < 0 {
		v.errorf("model.nsys_profile.start_step", "must not be negative, got %d", n.StartStep)
	}
	if n.EndStep < n.StartStep {
		v.errorf("model.nsys_profile.end_step", "%d is before start_step %d", n.EndStep, n.StartStep)
	}
	for i, rank := range n.Ranks {
		if rank < 0 || rank >= c.WorldSize() {
			v.errorf(fmt.Sprintf("model.nsys_profile.ranks.%d", i), "rank %d is outside world size %d", rank, c.WorldSize())
		}
	}
	if n.Enabled {
		if len(n.Ranks) == 0 {
			v.errorf("model.nsys_profile.ranks", "profiling enabled but no ranks selected")
		}
		v.warnf("model.nsys_profile.enabled", "nsys profiling is enabled, expect slower steps in the profiling window")
	}
}

func (c *RunConfig) validateOptim(v *findings) {
	o := c.Model.Optim

	if !knownOptimizers[o.Name] {
		v.errorf("model.optim.name", "unknown optimizer %q", o.Name)
	}
	if o.Lr <= 0 {
		v.errorf("model.optim.lr", "must be positive, got %v", o.Lr)
	}
	if o.WeightDecay < 0 {
		v.errorf("model.optim.weight_decay", "must not be negative, got %v", o.WeightDecay)
	}
	if len(o.Betas) != 2 {
		v.errorf("model.optim.betas", "expected 2 momentum coefficients, got %d", len(o.Betas))
	} else {
		for i, beta := range o.Betas {
			if beta < 0 || beta >= 1 {
				v.errorf(fmt.Sprintf("model.optim.betas.%d", i), "must be in [0, 1), got %v", beta)
			}
		}
	}

	s := o.Sched
	if !knownScheds[s.Name] {
		v.errorf("model.optim.sched.name", "unknown schedule %q", s.Name)
	}
	if s.WarmupSteps < 0 {
		v.errorf("model.optim.sched.warmup_steps", "must not be negative, got %d", s.WarmupSteps)
	}
	if s.ConstantSteps < 0 {
		v.errorf("model.optim.sched.constant_steps", "must not be negative, got %d", s.ConstantSteps)
	}
	if c.Trainer.MaxSteps > 0 && s.WarmupSteps+s.ConstantSteps > c.Trainer.MaxSteps {
		v.errorf("model.optim.sched.warmup_steps", "warmup_steps + constant_steps (%d) exceeds trainer.max_steps %d", s.WarmupSteps+s.ConstantSteps, c.Trainer.MaxSteps)
	}
	if s.MinLr < 0 {
		v.errorf("model.optim.sched.min_lr", "must not be negative, got %v", s.MinLr)
	}
	if s.MinLr > o.Lr {
		v.errorf("model.optim.sched.min_lr", "%v exceeds lr %v", s.MinLr, o.Lr)
	}
}
