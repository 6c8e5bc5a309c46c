package stage

// stageConfig collects the options shared by every stage type.
type stageConfig struct {
	label string
}

// StageBuilderOption is a functional option used to configure a stage during construction.
type StageBuilderOption func(*stageConfig)

// WithLabel sets the debug label of the stage. Its render pass and depth texture are labelled after it.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - StageBuilderOption: a function that sets the label of the stage
func WithLabel(label string) StageBuilderOption {
	return func(c *stageConfig) {
		c.label = label
	}
}

func newStageConfig(defaultLabel string, options []StageBuilderOption) stageConfig {
	cfg := stageConfig{label: defaultLabel}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}
