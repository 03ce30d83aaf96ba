package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fixcry/fixcry/internal/detect"
	"github.com/fixcry/fixcry/internal/loader"
	"github.com/fixcry/fixcry/internal/model"
	"github.com/fixcry/fixcry/internal/similarity"
)

// ErrNoIndex is returned by ClusterStep when no index step ran before it.
var ErrNoIndex = errors.New("similarity index has not been built")

// LoadStep reads the issue records of run.InputDir.
//
// Design decision: A directory that cannot be read fails the step, which
// stops the pipeline. The run is left with no records, which the CLI turns
// into "no issues found". A single bad file never fails the step.
type LoadStep struct {
	opts   loader.Options
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadExtensions sets the recognized issue file extensions.
func WithLoadExtensions(exts []string) LoadStepOption {
	return func(s *LoadStep) {
		s.opts.Extensions = exts
	}
}

// WithLoadWorkers sets how many files are parsed concurrently.
func WithLoadWorkers(n int) LoadStepOption {
	return func(s *LoadStep) {
		s.opts.Workers = n
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a new load step.
func NewLoadStep(opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		opts:   loader.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step.
func (s *LoadStep) Do(ctx context.Context, run *model.Run) error {
	opts := s.opts
	opts.Logger = s.logger

	res, err := loader.Load(ctx, run.InputDir, opts)
	run.Records = res.Records
	run.Skipped = res.Skipped
	run.Fingerprint = res.Fingerprint
	if err != nil {
		return fmt.Errorf("load issues: %w", err)
	}
	return nil
}

// IndexStep builds the similarity index over run.Records.
type IndexStep struct {
	opts   similarity.Options
	logger *slog.Logger
}

// IndexStepOption configures an IndexStep.
type IndexStepOption func(*IndexStep)

// WithIndexWeights sets the per-field weights.
func WithIndexWeights(weights map[model.Field]float64) IndexStepOption {
	return func(s *IndexStep) {
		s.opts.Weights = weights
	}
}

// WithIndexFieldCutoff sets the per-field match cutoff.
func WithIndexFieldCutoff(cutoff float64) IndexStepOption {
	return func(s *IndexStep) {
		s.opts.FieldCutoff = cutoff
	}
}

// WithIndexLogger sets a custom logger for the index step.
func WithIndexLogger(logger *slog.Logger) IndexStepOption {
	return func(s *IndexStep) {
		s.logger = logger
	}
}

// NewIndexStep creates a new index step.
func NewIndexStep(opts ...IndexStepOption) *IndexStep {
	s := &IndexStep{
		opts:   similarity.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
//
// The field cutoff is raised to the run threshold when the threshold is
// larger, otherwise no field could reach a score the threshold admits.
func (s *IndexStep) Do(_ context.Context, run *model.Run) error {
	opts := s.opts
	if opts.FieldCutoff <= 0 || opts.FieldCutoff > 1 {
		opts.FieldCutoff = similarity.DefaultFieldCutoff
	}
	opts.FieldCutoff = max(opts.FieldCutoff, min(run.Threshold, 1))

	ix := similarity.Build(run.Records, opts)
	run.Index = ix

	s.logger.Debug("similarity index built",
		"records", ix.Len(),
		"field_cutoff", ix.Cutoff(),
	)
	return nil
}

// ClusterStep groups duplicate records using run.Index.
type ClusterStep struct {
	logger *slog.Logger
}

// NewClusterStep creates a new cluster step.
func NewClusterStep(logger *slog.Logger) *ClusterStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClusterStep{logger: logger}
}

// Name returns the step name.
func (s *ClusterStep) Name() string {
	return "cluster"
}

// Do executes the cluster step.
func (s *ClusterStep) Do(_ context.Context, run *model.Run) error {
	if run.Index == nil {
		return ErrNoIndex
	}

	run.Groups = detect.FindDuplicates(run.Records, run.Index, run.Threshold)

	s.logger.Debug("duplicate groups found",
		"groups", len(run.Groups),
		"duplicates", run.TotalDuplicates(),
		"threshold", run.Threshold,
	)
	return nil
}

// SuggestStep proposes a merge for every group in run.Groups.
type SuggestStep struct{}

// NewSuggestStep creates a new suggest step.
func NewSuggestStep() *SuggestStep {
	return &SuggestStep{}
}

// Name returns the step name.
func (s *SuggestStep) Name() string {
	return "suggest"
}

// Do executes the suggest step.
func (s *SuggestStep) Do(_ context.Context, run *model.Run) error {
	run.MergeSuggestions = detect.SuggestMerges(run.Groups)
	return nil
}

// DetectionConfig holds configuration for the detection pipeline.
type DetectionConfig struct {
	// Extensions are the recognized issue file extensions.
	Extensions []string

	// Workers is the number of files parsed concurrently.
	Workers int

	// Weights maps each record field to its weight.
	Weights map[model.Field]float64

	// FieldCutoff is the per-field match cutoff.
	FieldCutoff float64

	// Suggestions adds the suggest step.
	Suggestions bool
}

// DetectionOption configures a DetectionConfig.
type DetectionOption func(*DetectionConfig)

// WithPipelineExtensions sets the recognized issue file extensions.
func WithPipelineExtensions(exts []string) DetectionOption {
	return func(c *DetectionConfig) {
		c.Extensions = exts
	}
}

// WithPipelineWorkers sets how many files are parsed concurrently.
func WithPipelineWorkers(n int) DetectionOption {
	return func(c *DetectionConfig) {
		c.Workers = n
	}
}

// WithPipelineWeights sets the per-field weights.
func WithPipelineWeights(weights map[model.Field]float64) DetectionOption {
	return func(c *DetectionConfig) {
		c.Weights = weights
	}
}

// WithPipelineFieldCutoff sets the per-field match cutoff.
func WithPipelineFieldCutoff(cutoff float64) DetectionOption {
	return func(c *DetectionConfig) {
		c.FieldCutoff = cutoff
	}
}

// WithPipelineSuggestions enables merge suggestions.
func WithPipelineSuggestions(enabled bool) DetectionOption {
	return func(c *DetectionConfig) {
		c.Suggestions = enabled
	}
}

// DetectionPipeline creates the standard duplicate detection pipeline:
// load, index, cluster and, when suggestions are enabled, suggest.
//
// The first parameter accepts pipeline options (WithLogger, etc).
// The variadic parameter accepts detection options (WithPipelineWorkers, etc).
// The pipeline logger is handed to every step.
func DetectionPipeline(pipelineOpts []Option, configOpts ...DetectionOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DetectionConfig{
		Extensions:  []string{loader.DefaultExtension},
		Workers:     1,
		Weights:     similarity.DefaultWeights(),
		FieldCutoff: similarity.DefaultFieldCutoff,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewLoadStep(
			WithLoadExtensions(cfg.Extensions),
			WithLoadWorkers(cfg.Workers),
			WithLoadLogger(p.logger),
		),
		NewIndexStep(
			WithIndexWeights(cfg.Weights),
			WithIndexFieldCutoff(cfg.FieldCutoff),
			WithIndexLogger(p.logger),
		),
		NewClusterStep(p.logger),
	)
	if cfg.Suggestions {
		p.AddStep(NewSuggestStep())
	}

	return p
}
