// Package model defines the shared estimator contracts of the pipeline:
// fitted-state tracking and the interfaces implemented by classifiers and
// feature transformers.
package model

// fitState tracks whether an estimator has been fitted.
type fitState int

const (
	notFitted fitState = iota
	fitted
)

// Base is embedded by every estimator to carry its fitted state.
type Base struct {
	state fitState
}

// IsFitted reports whether Fit has completed successfully.
func (b *Base) IsFitted() bool { return b.state == fitted }

// SetFitted marks the estimator as fitted.
func (b *Base) SetFitted() { b.state = fitted }

// Reset returns the estimator to the unfitted state.
func (b *Base) Reset() { b.state = notFitted }
