package arima

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidOrder is returned for negative orders or a bad season length.
	ErrInvalidOrder = errors.New("arima: invalid order")
	// ErrEmptyBatch is returned when a model is built without any series.
	ErrEmptyBatch = errors.New("arima: empty batch")
	// ErrInsufficientData is returned for a series too short for its order.
	ErrInsufficientData = errors.New("arima: insufficient data")
	// ErrInvalidRange is returned by Predict for a bad [start, end) range.
	ErrInvalidRange = errors.New("arima: invalid prediction range")
	// ErrInvalidLevel is returned for a confidence level outside (0, 1).
	ErrInvalidLevel = errors.New("arima: confidence level must be in (0, 1)")
	// ErrInvalidHorizon is returned for a forecast horizon below 1.
	ErrInvalidHorizon = errors.New("arima: horizon must be at least 1")
	// ErrInvalidParams is returned by SetParams for mis-shaped parameters.
	ErrInvalidParams = errors.New("arima: invalid parameters")
)

// NotFittedError is returned when a model is used before Fit or SetParams.
type NotFittedError struct {
	Method string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("arima: model is not fitted yet, call Fit() before using %s()", e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("method", e.Method).Str("type", "NotFittedError")
}

func notFitted(method string) error {
	return errors.WithStack(&NotFittedError{Method: method})
}

// SeriesError records why one series of a batch could not be fitted.
type SeriesError struct {
	Index int
	Name  string
	Err   error
}

func (e SeriesError) Error() string {
	return fmt.Sprintf("series %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e SeriesError) Unwrap() error {
	return e.Err
}

// FitError reports the series of a batch that failed to fit.
// The remaining series are usable; failed ones produce NaN.
type FitError struct {
	Total    int
	Failures []SeriesError
}

func (e *FitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "arima: %d of %d series failed to fit", len(e.Failures), e.Total)
	for i, f := range e.Failures {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-i)
			break
		}
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every per-series cause to errors.Is and errors.As.
func (e *FitError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// AllFailed reports whether no series of the batch was fitted.
func (e *FitError) AllFailed() bool {
	return len(e.Failures) == e.Total
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *FitError) MarshalZerologObject(event *zerolog.Event) {
	idx := make([]int, len(e.Failures))
	for i, f := range e.Failures {
		idx[i] = f.Index
	}
	event.Int("total", e.Total).Ints("failed", idx).Str("type", "FitError")
}
