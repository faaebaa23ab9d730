package inspector

import (
	"context"
	"fmt"
	"time"

	"github.com/samogod/trainconf/pkg/config"
	"github.com/samogod/trainconf/pkg/document"
	"github.com/samogod/trainconf/pkg/elastic"
	"github.com/samogod/trainconf/pkg/interp"
	"github.com/samogod/trainconf/pkg/registry"
	"github.com/samogod/trainconf/pkg/runconfig"
	"github.com/samogod/trainconf/pkg/tokenizer"

	"github.com/sirupsen/logrus"
)

var DebugLog func(string, ...interface{})

type Inspector struct {
	config        *config.Config
	configManager *config.Manager
	logger        *logrus.Logger
	db            *registry.DB
}

type InspectOptions struct {
	File           string
	Strict         bool
	CheckTokenizer bool
	SkipRecord     bool
	CollectStats   bool
}

type PhaseStat struct {
	Name     string
	Duration time.Duration
}

// Report is the outcome of one inspection: the resolved document, its typed
// form, every validation finding, and a digest suitable for tracking.
type Report struct {
	File          string
	Config        *runconfig.RunConfig
	Document      *document.Document
	Summary       runconfig.Summary
	Findings      []runconfig.Finding
	References    []string
	Resolvers     []string
	TokenizerPath string
	TokenizerInfo *tokenizer.Info
	Valid         bool
	Duration      time.Duration
	PhaseStats    []PhaseStat
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

func NewInspector(configPath string) (*Inspector, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&customFormatter{})

	configManager := config.NewManager(configPath)
	if err := configManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := configManager.GetConfig()

	db, err := registry.New(&cfg.Registry)
	if err != nil {
		logger.Warnf("Run registry initialization failed: %v", err)
	}

	return &Inspector{
		config:        cfg,
		configManager: configManager,
		logger:        logger,
		db:            db,
	}, nil
}

// Inspect runs the full pipeline over one run document: parse, resolve
// interpolations, decode into the typed schema, validate, and optionally
// record the outcome in the configured backends.
func (i *Inspector) Inspect(opts InspectOptions) (*Report, error) {
	startTime := time.Now()

	report := &Report{File: opts.File}
	phase := phaseTimer{collect: opts.CollectStats, last: startTime}

	doc, err := document.Load(opts.File)
	if err != nil {
		return nil, err
	}
	report.Document = doc
	phase.mark(report, "parse")

	refs, resolvers, err := interp.References(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.File, err)
	}
	report.References = refs
	report.Resolvers = resolvers

	cfg, err := runconfig.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.File, err)
	}
	report.Config = cfg
	phase.mark(report, "resolve")

	report.Findings = cfg.Validate()
	report.Summary = cfg.Summarize()
	phase.mark(report, "validate")

	if opts.CheckTokenizer {
		if err := i.checkTokenizer(report); err != nil {
			i.logger.Warnf("Tokenizer check failed: %v", err)
			report.Findings = append(report.Findings, runconfig.Finding{
				Path:    "model.tokenizer",
				Message: err.Error(),
				Warning: true,
			})
		}
		phase.mark(report, "tokenizer")
	}

	// The verdict must cover findings from every phase, the tokenizer
	// check included.
	if opts.Strict || i.config.DefaultSettings.Strict {
		report.Valid = len(report.Findings) == 0
	} else {
		report.Valid = len(runconfig.Errors(report.Findings)) == 0
	}

	if !opts.SkipRecord {
		i.recordRun(report)
		phase.mark(report, "record")
	}

	report.Duration = time.Since(startTime)
	return report, nil
}

// Render returns the fully resolved document, comments preserved.
func (i *Inspector) Render(file string) ([]byte, error) {
	doc, err := document.Load(file)
	if err != nil {
		return nil, err
	}

	if err := interp.NewRegistry().Resolve(doc); err != nil {
		return nil, fmt.Errorf("%s: interpolation failed: %w", file, err)
	}

	return doc.Encode()
}

func (i *Inspector) checkTokenizer(report *Report) error {
	downloader := tokenizer.NewDownloader(i.config.TokenizerCache)

	path, err := downloader.Fetch(report.Config.Model.Tokenizer)
	if err != nil {
		return err
	}
	report.TokenizerPath = path

	if DebugLog != nil {
		DebugLog("tokenizer artifacts at %s", path)
	}

	if report.Config.Model.Tokenizer.Library == "huggingface" {
		info, err := tokenizer.LoadInfo(path)
		if err != nil {
			return fmt.Errorf("tokenizer config unreadable: %w", err)
		}
		report.TokenizerInfo = info
		if info.ModelMaxLength > 0 && info.ModelMaxLength < report.Config.Model.EncoderSeqLength {
			report.Findings = append(report.Findings, runconfig.Finding{
				Path:    "model.encoder_seq_length",
				Message: fmt.Sprintf("%d exceeds the tokenizer's model_max_length %d", report.Config.Model.EncoderSeqLength, info.ModelMaxLength),
				Warning: true,
			})
		}
	}
	return nil
}

func (i *Inspector) recordRun(report *Report) {
	if i.db != nil && i.db.IsEnabled() {
		if err := i.db.RecordRun(report.Summary, report.Valid); err != nil {
			i.logger.Warnf("Failed to record run in registry: %v", err)
		}
	}

	if i.config.Elasticsearch.Enabled {
		es, err := elastic.New(i.config.Elasticsearch)
		if err != nil {
			i.logger.Warnf("Elasticsearch unavailable: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(i.config.DefaultSettings.Timeout)*time.Minute)
		defer cancel()

		if err := es.IndexRun(ctx, report.Summary, report.Valid, len(report.Findings)); err != nil {
			i.logger.Warnf("Failed to index run: %v", err)
		}
	}
}

func (i *Inspector) GetConfig() *config.Config {
	return i.config
}

func (i *Inspector) GetDB() *registry.DB {
	return i.db
}

func (i *Inspector) Logger() *logrus.Logger {
	return i.logger
}

type phaseTimer struct {
	collect bool
	last    time.Time
}

func (p *phaseTimer) mark(report *Report, name string) {
	if !p.collect {
		return
	}
	now := time.Now()
	report.PhaseStats = append(report.PhaseStats, PhaseStat{Name: name, Duration: now.Sub(p.last)})
	p.last = now
}
