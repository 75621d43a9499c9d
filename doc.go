// Package strand is a model-selection pipeline for binary classification
// on tabular healthcare data, built around the stranded-patient problem:
// predicting which admitted patients will remain in hospital after they
// are medically fit for discharge.
//
// The pipeline runs as a fixed sequence of stages, each a pure data
// transformation driven by one run seed:
//
//	Dataset -> Split -> FeatureRecipe -> KFold -> Search -> Selector -> Evaluator
//
// dataset loads and partitions the labelled records, recipe fits the
// leak-free feature transformation (date decomposition, minority
// upsampling, dummy encoding, zero-variance filtering, normalisation),
// classifier provides the closed set of model families, tune runs the
// parallel cross-validated hyperparameter search and picks the winner,
// pipeline orchestrates the whole flow into a RunReport, and report
// renders that for the results sink.
//
// Command stranded wires the pipeline to CSV input and file output.
package strand
