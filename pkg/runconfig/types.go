package runconfig

// RunConfig is the typed form of one training run document. Pointer fields
// and nil slices map to YAML null, which means "let the training framework
// pick its default or compute the value at runtime".
type RunConfig struct {
	Name            string     `yaml:"name"`
	RestoreFromPath *string    `yaml:"restore_from_path"`
	Trainer         Trainer    `yaml:"trainer"`
	ExpManager      ExpManager `yaml:"exp_manager"`
	Model           Model      `yaml:"model"`
}

// Trainer covers hardware topology and run-length controls consumed by the
// training-loop driver.
type Trainer struct {
	Devices               int     `yaml:"devices"`
	NumNodes              int     `yaml:"num_nodes"`
	Accelerator           string  `yaml:"accelerator"`
	Precision             string  `yaml:"precision"`
	Logger                bool    `yaml:"logger"`
	EnableCheckpointing   bool    `yaml:"enable_checkpointing"`
	ReplaceSamplerDDP     bool    `yaml:"replace_sampler_ddp"`
	MaxEpochs             *int    `yaml:"max_epochs"`
	MaxSteps              int     `yaml:"max_steps"`
	MaxTime               *string `yaml:"max_time"`
	LogEveryNSteps        int     `yaml:"log_every_n_steps"`
	ValCheckInterval      int     `yaml:"val_check_interval"`
	LimitValBatches       int     `yaml:"limit_val_batches"`
	LimitTestBatches      int     `yaml:"limit_test_batches"`
	AccumulateGradBatches int     `yaml:"accumulate_grad_batches"`
	GradientClipVal       float64 `yaml:"gradient_clip_val"`
}

type ExpManager struct {
	ExplicitLogDir           *string                  `yaml:"explicit_log_dir"`
	ExpDir                   *string                  `yaml:"exp_dir"`
	Name                     string                   `yaml:"name"`
	CreateWandbLogger        bool                     `yaml:"create_wandb_logger"`
	WandbLoggerKwargs        WandbLoggerKwargs        `yaml:"wandb_logger_kwargs"`
	ResumeIfExists           bool                     `yaml:"resume_if_exists"`
	ResumeIgnoreNoCheckpoint bool                     `yaml:"resume_ignore_no_checkpoint"`
	CreateCheckpointCallback bool                     `yaml:"create_checkpoint_callback"`
	CheckpointCallbackParams CheckpointCallbackParams `yaml:"checkpoint_callback_params"`
	LogStepTiming            bool                     `yaml:"log_step_timing"`
	StepTimingKwargs         StepTimingKwargs         `yaml:"step_timing_kwargs"`
}

type WandbLoggerKwargs struct {
	Project *string `yaml:"project"`
	Name    *string `yaml:"name"`
}

// CheckpointCallbackParams configures checkpoint retention. ModelParallelSize
// arrives in the document as a ${multiply:...} placeholder over the two
// parallel sizes and is an integer once resolution has run.
type CheckpointCallbackParams struct {
	Monitor            string `yaml:"monitor"`
	SaveTopK           int    `yaml:"save_top_k"`
	Mode               string `yaml:"mode"`
	AlwaysSaveNemo     bool   `yaml:"always_save_nemo"`
	SaveNemoOnTrainEnd bool   `yaml:"save_nemo_on_train_end"`
	Filename           string `yaml:"filename"`
	ModelParallelSize  int    `yaml:"model_parallel_size"`
}

type StepTimingKwargs struct {
	SyncCuda   bool `yaml:"sync_cuda"`
	BufferSize int  `yaml:"buffer_size"`
}

type Model struct {
	MicroBatchSize                   int     `yaml:"micro_batch_size"`
	GlobalBatchSize                  int     `yaml:"global_batch_size"`
	TensorModelParallelSize          int     `yaml:"tensor_model_parallel_size"`
	PipelineModelParallelSize        int     `yaml:"pipeline_model_parallel_size"`
	VirtualPipelineModelParallelSize *int    `yaml:"virtual_pipeline_model_parallel_size"`
	EncoderSeqLength                 int     `yaml:"encoder_seq_length"`
	MaxPositionEmbeddings            int     `yaml:"max_position_embeddings"`
	NumLayers                        int     `yaml:"num_layers"`
	HiddenSize                       int     `yaml:"hidden_size"`
	FFNHiddenSize                    int     `yaml:"ffn_hidden_size"`
	NumAttentionHeads                int     `yaml:"num_attention_heads"`
	InitMethodStd                    float64 `yaml:"init_method_std"`
	UseScaledInitMethod              bool    `yaml:"use_scaled_init_method"`
	HiddenDropout                    float64 `yaml:"hidden_dropout"`
	AttentionDropout                 float64 `yaml:"attention_dropout"`
	FFNDropout                       float64 `yaml:"ffn_dropout"`
	KVChannels                       *int    `yaml:"kv_channels"`
	ApplyQueryKeyLayerScaling        bool    `yaml:"apply_query_key_layer_scaling"`
	Normalization                    string  `yaml:"normalization"`
	LayernormEpsilon                 float64 `yaml:"layernorm_epsilon"`
	DoLayerNormWeightDecay           bool    `yaml:"do_layer_norm_weight_decay"`
	MakeVocabSizeDivisibleBy         int     `yaml:"make_vocab_size_divisible_by"`
	PreProcess                       bool    `yaml:"pre_process"`
	PostProcess                      bool    `yaml:"post_process"`
	PersistLayerNorm                 bool    `yaml:"persist_layer_norm"`
	Bias                             bool    `yaml:"bias"`
	Activation                       string  `yaml:"activation"`
	Headscale                        bool    `yaml:"headscale"`
	TransformerBlockType             string  `yaml:"transformer_block_type"`
	OpenAIGelu                       bool    `yaml:"openai_gelu"`
	NormalizeAttentionScores         bool    `yaml:"normalize_attention_scores"`
	PositionEmbeddingType            string  `yaml:"position_embedding_type"`
	RotaryPercentage                 float64 `yaml:"rotary_percentage"`
	AttentionType                    string  `yaml:"attention_type"`
	ShareEmbeddingsAndOutputWeights  bool    `yaml:"share_embeddings_and_output_weights"`

	Tokenizer Tokenizer `yaml:"tokenizer"`

	NativeAmpInitScale         int     `yaml:"native_amp_init_scale"`
	NativeAmpGrowthInterval    int     `yaml:"native_amp_growth_interval"`
	MegatronAmpO2              bool    `yaml:"megatron_amp_O2"`
	GradDivArFusion            bool    `yaml:"grad_div_ar_fusion"`
	GradientAccumulationFusion bool    `yaml:"gradient_accumulation_fusion"`
	Seed                       int     `yaml:"seed"`
	ResumeFromCheckpoint       *string `yaml:"resume_from_checkpoint"`
	UseCPUInitialization       bool    `yaml:"use_cpu_initialization"`
	OnnxSafe                   bool    `yaml:"onnx_safe"`
	ApexTransformerLogLevel    int     `yaml:"apex_transformer_log_level"`
	GradientAsBucketView       bool    `yaml:"gradient_as_bucket_view"`
	SyncBatchComm              bool    `yaml:"sync_batch_comm"`
	SequenceParallel           bool    `yaml:"sequence_parallel"`

	ActivationsCheckpointGranularity                *string `yaml:"activations_checkpoint_granularity"`
	ActivationsCheckpointMethod                     *string `yaml:"activations_checkpoint_method"`
	ActivationsCheckpointNumLayers                  *int    `yaml:"activations_checkpoint_num_layers"`
	NumMicroBatchesWithPartialActivationCheckpoints *int    `yaml:"num_micro_batches_with_partial_activation_checkpoints"`
	ActivationsCheckpointLayersPerPipeline          *int    `yaml:"activations_checkpoint_layers_per_pipeline"`

	Data        DataConfig  `yaml:"data"`
	NsysProfile NsysProfile `yaml:"nsys_profile"`
	Optim       Optim       `yaml:"optim"`
}

type Tokenizer struct {
	Library             string  `yaml:"library"`
	Type                *string `yaml:"type"`
	Model               *string `yaml:"model"`
	VocabFile           *string `yaml:"vocab_file"`
	MergeFile           *string `yaml:"merge_file"`
	Delimiter           *string `yaml:"delimiter"`
	SentencepieceLegacy bool    `yaml:"sentencepiece_legacy"`
}

type DataConfig struct {
	DataPrefix         []string `yaml:"data_prefix"`
	IndexMappingDir    *string  `yaml:"index_mapping_dir"`
	DataImpl           string   `yaml:"data_impl"`
	SplitsString       string   `yaml:"splits_string"`
	SeqLength          int      `yaml:"seq_length"`
	SkipWarmup         bool     `yaml:"skip_warmup"`
	NumWorkers         int      `yaml:"num_workers"`
	DataloaderType     string   `yaml:"dataloader_type"`
	ResetPositionIDs   bool     `yaml:"reset_position_ids"`
	ResetAttentionMask bool     `yaml:"reset_attention_mask"`
	EODMaskLoss        bool     `yaml:"eod_mask_loss"`
	ValidationDropLast bool     `yaml:"validation_drop_last"`
}

// NsysProfile is the optional profiling window for nsys.
type NsysProfile struct {
	Enabled   bool  `yaml:"enabled"`
	StartStep int   `yaml:"start_step"`
	EndStep   int   `yaml:"end_step"`
	Ranks     []int `yaml:"ranks"`
	GenShape  bool  `yaml:"gen_shape"`
}

type Optim struct {
	Name        string    `yaml:"name"`
	Lr          float64   `yaml:"lr"`
	WeightDecay float64   `yaml:"weight_decay"`
	Betas       []float64 `yaml:"betas"`
	Sched       Sched     `yaml:"sched"`
}

type Sched struct {
	Name          string  `yaml:"name"`
	WarmupSteps   int     `yaml:"warmup_steps"`
	ConstantSteps int     `yaml:"constant_steps"`
	MinLr         float64 `yaml:"min_lr"`
}
