package backtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/rustyeddy/propguard/market"
	"github.com/rustyeddy/propguard/risk"
)

// ErrInvalidInput is risk.ErrInvalidInput.
var ErrInvalidInput = risk.ErrInvalidInput

// Mode names where the return series came from. It is echoed in the result.
type Mode string

const (
	ModeGraph  Mode = "graph"
	ModePython Mode = "python"
)

// ReturnConvention says how a return advances equity.
type ReturnConvention string

const (
	// Multiplicative returns are fractions: equity *= 1 + r.
	Multiplicative ReturnConvention = "multiplicative"
	// Additive returns are PnL in account currency: equity += r.
	Additive ReturnConvention = "additive"
)

// DefaultStart and DefaultInterval build synthetic timestamps when a request
// carries no bars.
var (
	DefaultStart    = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultInterval = 24 * time.Hour
)

// Request is one backtest job.
type Request struct {
	Mode             Mode             `json:"mode,omitempty"`
	Returns          []float64        `json:"returns"`
	Bars             []market.Bar     `json:"bars,omitempty"`
	Window           int              `json:"window"`
	ReturnConvention ReturnConvention `json:"return_convention,omitempty"`
	FTMORisk         *risk.Config     `json:"ftmo_risk,omitempty"`

	// Start and Interval place synthetic timestamps; ignored with bars.
	Start    time.Time `json:"start,omitempty"`
	Interval Duration  `json:"interval,omitempty"`
}

// DecodeRequest reads a JSON request. Unknown fields are rejected.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("%w: decode request: %v", ErrInvalidInput, err)
	}
	if dec.More() {
		return Request{}, fmt.Errorf("%w: trailing data after request", ErrInvalidInput)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// WithDefaults fills the optional fields.
func (r Request) WithDefaults() Request {
	if r.Mode == "" {
		r.Mode = ModeGraph
	}
	if r.ReturnConvention == "" {
		r.ReturnConvention = Multiplicative
	}
	if r.Start.IsZero() {
		r.Start = DefaultStart
	}
	if r.Interval == 0 {
		r.Interval = Duration(DefaultInterval)
	}
	return r
}

// Validate rejects a request before anything runs.
func (r Request) Validate() error {
	r = r.WithDefaults()

	switch r.Mode {
	case ModeGraph, ModePython:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, r.Mode)
	}
	switch r.ReturnConvention {
	case Multiplicative, Additive:
	default:
		return fmt.Errorf("%w: unknown return_convention %q", ErrInvalidInput, r.ReturnConvention)
	}

	if len(r.Returns) == 0 {
		return fmt.Errorf("%w: returns must not be empty", ErrInvalidInput)
	}
	for i, v := range r.Returns {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: returns[%d] is not finite", ErrInvalidInput, i)
		}
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidInput, r.Window)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidInput)
	}

	if len(r.Bars) > 0 {
		if len(r.Bars) != len(r.Returns) {
			return fmt.Errorf("%w: %d bars for %d returns", ErrInvalidInput, len(r.Bars), len(r.Returns))
		}
		if err := market.CheckOrdered(r.Bars); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if r.FTMORisk != nil {
		if err := r.FTMORisk.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Duration is a time.Duration that reads "24h" or "H1" style strings or a
// number of seconds from JSON and writes the duration string form.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := market.ParseInterval(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	secs, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return errors.New("duration must be a string like \"1h\" or a number of seconds")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}
