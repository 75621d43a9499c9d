package log

// Attribute keys used across pipeline stages. Keeping them in one place
// makes the JSON logs filterable per stage, fold and candidate.
const (
	// StageKey names the pipeline stage emitting the record.
	// Values: "load", "split", "recipe", "resample", "search", "select",
	// "final_fit", "evaluate".
	StageKey = "pipeline.stage"

	// ModelKey names the model family, e.g. "logistic_regression".
	ModelKey = "model.family"

	// FoldKey is the zero-based cross-validation fold index.
	FoldKey = "cv.fold"

	// CandidateKey is the index of a hyperparameter candidate in the grid.
	CandidateKey = "tune.candidate"

	// SeedKey is the run seed; every run logs it once so results can be
	// reproduced bit-for-bit.
	SeedKey = "run.seed"

	// RowsKey and ColsKey describe the shape of the data at a stage.
	RowsKey = "data.rows"
	ColsKey = "data.cols"

	// MetricKey and ValueKey carry a single metric observation.
	MetricKey = "metric.name"
	ValueKey  = "metric.value"

	// DurationMsKey records the wall time of a stage in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
