package views

import (
	"errors"
	"io"
)

// DefaultCutoff is the analysis page's initial high-pass cutoff in Hz.
const DefaultCutoff = 0.5

var ErrInvalidCutoff = errors.New("cutoff must be positive")

// Analysis is the spectrum analysis page. It is rebuilt on every visit.
type Analysis struct {
	cutoff float64
}

// NewAnalysis returns an analysis view with the default cutoff.
func NewAnalysis() *Analysis {
	return &Analysis{cutoff: DefaultCutoff}
}

// SetCutoff sets the high-pass cutoff frequency.
func (a *Analysis) SetCutoff(hz float64) error {
	if hz <= 0 {
		return ErrInvalidCutoff
	}
	a.cutoff = hz
	return nil
}

// Cutoff returns the high-pass cutoff frequency.
func (a *Analysis) Cutoff() float64 {
	return a.cutoff
}

func (a *Analysis) Render(w io.Writer) error {
	return render(w, "analysis", struct{ Cutoff float64 }{a.cutoff})
}
