package views

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// SignalTypes the generator form offers.
var SignalTypes = []string{"sine", "square", "triangle"}

var ErrInvalidSignal = errors.New("invalid signal parameters")

// SignalParams are the generator form fields.
type SignalParams struct {
	Type       string
	Frequency  float64
	Amplitude  float64
	Phase      float64
	Duration   float64
	DutyCycle  float64
	SampleRate float64
}

// DefaultSignalParams returns the form's initial values.
func DefaultSignalParams() SignalParams {
	return SignalParams{
		Type:       "sine",
		Frequency:  1,
		Amplitude:  1,
		Phase:      0,
		Duration:   1,
		DutyCycle:  0.5,
		SampleRate: 44100,
	}
}

// Validate checks the parameters the way the backend will.
func (p SignalParams) Validate() error {
	switch strings.ToLower(p.Type) {
	case "sine", "square", "triangle":
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidSignal, p.Type)
	}
	if p.Frequency <= 0 || p.Amplitude <= 0 || p.Duration <= 0 || p.SampleRate <= 0 {
		return fmt.Errorf("%w: frequency, amplitude, duration and sample rate must be positive", ErrInvalidSignal)
	}
	if p.DutyCycle <= 0 || p.DutyCycle >= 1 {
		return fmt.Errorf("%w: duty cycle must be in (0, 1)", ErrInvalidSignal)
	}
	return nil
}

// Generator holds the signal generator form.
type Generator struct {
	params SignalParams
}

// NewGenerator returns a generator with default parameters.
func NewGenerator() *Generator {
	return &Generator{params: DefaultSignalParams()}
}

// Params returns the current parameters.
func (g *Generator) Params() SignalParams {
	return g.params
}

// SetParams replaces the parameters if they are valid.
func (g *Generator) SetParams(p SignalParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Type = strings.ToLower(p.Type)
	g.params = p
	return nil
}

func (g *Generator) Render(w io.Writer) error {
	return render(w, "generator", g.params)
}
