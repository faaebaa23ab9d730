package runconfig

import (
	"github.com/samogod/trainconf/pkg/document"
)

const DefaultName = "megatron_llama_ppo_sentiments"

// defaultTemplate is the canonical llama2-7b PPO sentiments run. `trainconf
// init` writes it verbatim; Default() mirrors it field for field.
const defaultTemplate = `name: megatron_llama_ppo_sentiments

restore_from_path: null # set to a .nemo file to fine-tune from a packaged model

trainer:
  devices: 8
  num_nodes: 4
  accelerator: gpu
  precision: bf16
  logger: false # logger provided by exp_manager
  enable_checkpointing: false # checkpointing handled by exp_manager
  replace_sampler_ddp: false
  max_epochs: null
  max_steps: 200
  max_time: null
  log_every_n_steps: 1
  val_check_interval: 16
  limit_val_batches: 2
  limit_test_batches: 2
  accumulate_grad_batches: 1
  gradient_clip_val: 1.0

exp_manager:
  explicit_log_dir: null
  exp_dir: null
  name: megatron_llama_ppo_sentiments
  create_wandb_logger: false
  wandb_logger_kwargs:
    project: null
    name: null
  resume_if_exists: false
  resume_ignore_no_checkpoint: true
  create_checkpoint_callback: true
  checkpoint_callback_params:
    monitor: reward
    save_top_k: 1
    mode: max
    always_save_nemo: false
    save_nemo_on_train_end: true
    filename: 'megatron_llama--{reward:.3f}-{step}-{consumed_samples}'
    model_parallel_size: ${multiply:${model.tensor_model_parallel_size},${model.pipeline_model_parallel_size}}
  log_step_timing: true
  step_timing_kwargs:
    sync_cuda: true
    buffer_size: 5

model:
  micro_batch_size: 1
  global_batch_size: 64
  tensor_model_parallel_size: 4
  pipeline_model_parallel_size: 1
  virtual_pipeline_model_parallel_size: null
  encoder_seq_length: 4096
  max_position_embeddings: 4096
  num_layers: 32
  hidden_size: 4096
  ffn_hidden_size: 11008
  num_attention_heads: 32
  init_method_std: 0.02
  use_scaled_init_method: true
  hidden_dropout: 0.0
  attention_dropout: 0.0
  ffn_dropout: 0.0
  kv_channels: null # hidden_size // num_attention_heads when null
  apply_query_key_layer_scaling: true
  normalization: rmsnorm
  layernorm_epsilon: 1.0e-05
  do_layer_norm_weight_decay: false
  make_vocab_size_divisible_by: 128
  pre_process: true
  post_process: true
  persist_layer_norm: true
  bias: false
  activation: fast-swiglu
  headscale: false
  transformer_block_type: pre_ln
  openai_gelu: false
  normalize_attention_scores: true
  position_embedding_type: rope
  rotary_percentage: 1.0
  attention_type: multihead
  share_embeddings_and_output_weights: false

  tokenizer:
    library: huggingface
    type: NousResearch/Llama-2-7b-hf
    model: null
    vocab_file: null
    merge_file: null
    delimiter: null
    sentencepiece_legacy: false

  native_amp_init_scale: 4294967296
  native_amp_growth_interval: 1000
  megatron_amp_O2: true
  grad_div_ar_fusion: true
  gradient_accumulation_fusion: false
  seed: 1234
  resume_from_checkpoint: null
  use_cpu_initialization: false
  onnx_safe: false
  apex_transformer_log_level: 30
  gradient_as_bucket_view: true
  sync_batch_comm: false
  sequence_parallel: true

  activations_checkpoint_granularity: selective
  activations_checkpoint_method: uniform
  activations_checkpoint_num_layers: null
  num_micro_batches_with_partial_activation_checkpoints: null
  activations_checkpoint_layers_per_pipeline: null

  data:
    data_prefix: null
    index_mapping_dir: null
    data_impl: mmap
    splits_string: 900,50,50
    seq_length: 4096
    skip_warmup: true
    num_workers: 2
    dataloader_type: single
    reset_position_ids: false
    reset_attention_mask: false
    eod_mask_loss: false
    validation_drop_last: true

  nsys_profile:
    enabled: false
    start_step: 10
    end_step: 10
    ranks: [0]
    gen_shape: false

  optim:
    name: distributed_fused_adam
    lr: 9.0e-07
    weight_decay: 0.1
    betas:
      - 0.9
      - 0.98
    sched:
      name: CosineAnnealing
      warmup_steps: 10
      constant_steps: 40
      min_lr: 9.0e-08
`

// DefaultTemplate returns the default run document with its placeholder
// fields still unresolved.
func DefaultTemplate() []byte {
	return []byte(defaultTemplate)
}

// DefaultDocument parses the default run into a raw tree.
func DefaultDocument() (*document.Document, error) {
	return document.Parse([]byte(defaultTemplate))
}

// Default returns the typed form of the default run, with interpolations
// already applied.
func Default() *RunConfig {
	return &RunConfig{
		Name: DefaultName,
		Trainer: Trainer{
			Devices:               8,
			NumNodes:              4,
			Accelerator:           "gpu",
			Precision:             "bf16",
			Logger:                false,
			EnableCheckpointing:   false,
			ReplaceSamplerDDP:     false,
			MaxSteps:              200,
			LogEveryNSteps:        1,
			ValCheckInterval:      16,
			LimitValBatches:       2,
			LimitTestBatches:      2,
			AccumulateGradBatches: 1,
			GradientClipVal:       1.0,
		},
		ExpManager: ExpManager{
			Name:                     DefaultName,
			CreateWandbLogger:        false,
			ResumeIfExists:           false,
			ResumeIgnoreNoCheckpoint: true,
			CreateCheckpointCallback: true,
			CheckpointCallbackParams: CheckpointCallbackParams{
				Monitor:            "reward",
				SaveTopK:           1,
				Mode:               "max",
				AlwaysSaveNemo:     false,
				SaveNemoOnTrainEnd: true,
				Filename:           "megatron_llama--{reward:.3f}-{step}-{consumed_samples}",
				ModelParallelSize:  4,
			},
			LogStepTiming: true,
			StepTimingKwargs: StepTimingKwargs{
				SyncCuda:   true,
				BufferSize: 5,
			},
		},
		Model: Model{
			MicroBatchSize:                  1,
			GlobalBatchSize:                 64,
			TensorModelParallelSize:         4,
			PipelineModelParallelSize:       1,
			EncoderSeqLength:                4096,
			MaxPositionEmbeddings:           4096,
			NumLayers:                       32,
			HiddenSize:                      4096,
			FFNHiddenSize:                   11008,
			NumAttentionHeads:               32,
			InitMethodStd:                   0.02,
			UseScaledInitMethod:             true,
			ApplyQueryKeyLayerScaling:       true,
			Normalization:                   "rmsnorm",
			LayernormEpsilon:                1.0e-05,
			MakeVocabSizeDivisibleBy:        128,
			PreProcess:                      true,
			PostProcess:                     true,
			PersistLayerNorm:                true,
			Bias:                            false,
			Activation:                      "fast-swiglu",
			TransformerBlockType:            "pre_ln",
			NormalizeAttentionScores:        true,
			PositionEmbeddingType:           "rope",
			RotaryPercentage:                1.0,
			AttentionType:                   "multihead",
			ShareEmbeddingsAndOutputWeights: false,
			Tokenizer: Tokenizer{
				Library: "huggingface",
				Type:    strptr("NousResearch/Llama-2-7b-hf"),
			},
			NativeAmpInitScale:               4294967296,
			NativeAmpGrowthInterval:          1000,
			MegatronAmpO2:                    true,
			GradDivArFusion:                  true,
			Seed:                             1234,
			ApexTransformerLogLevel:          30,
			GradientAsBucketView:             true,
			SequenceParallel:                 true,
			ActivationsCheckpointGranularity: strptr("selective"),
			ActivationsCheckpointMethod:      strptr("uniform"),
			Data: DataConfig{
				DataImpl:           "mmap",
				SplitsString:       "900,50,50",
				SeqLength:          4096,
				SkipWarmup:         true,
				NumWorkers:         2,
				DataloaderType:     "single",
				ValidationDropLast: true,
			},
			NsysProfile: NsysProfile{
				Enabled:   false,
				StartStep: 10,
				EndStep:   10,
				Ranks:     []int{0},
				GenShape:  false,
			},
			Optim: Optim{
				Name:        "distributed_fused_adam",
				Lr:          9.0e-07,
				WeightDecay: 0.1,
				Betas:       []float64{0.9, 0.98},
				Sched: Sched{
					Name:          "CosineAnnealing",
					WarmupSteps:   10,
					ConstantSteps: 40,
					MinLr:         9.0e-08,
				},
			},
		},
	}
}

func strptr(s string) *string { return &s }
