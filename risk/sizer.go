package risk

import (
	"fmt"
	"math"

	"github.com/rustyeddy/propguard/market"
	"github.com/shopspring/decimal"
)

// Reason tags recorded by the sizing constraints.
const (
	TagMinRiskClamp      = "min_risk_clamp"
	TagMaxRiskClamp      = "max_risk_clamp"
	TagMaxRiskPerTrade   = "max_risk_per_trade"
	TagDefaultSLATR      = "default_sl_atr"
	TagMissingSLInfo     = "missing_sl_info"
	TagStepRounding      = "step_rounding"
	TagMinNotionalClamp  = "min_notional_clamp"
	TagNonPositiveEquity = "non_positive_equity"
	TagZeroStopDistance  = "zero_stop_distance"
	TagAdmissionBlocked  = "admission_blocked"
)

// SizerConfig bounds the risk an agent may request. Percent points.
type SizerConfig struct {
	MinRiskPct         float64 `json:"min_risk_pct" yaml:"min_risk_pct"`
	MaxRiskPct         float64 `json:"max_risk_pct" yaml:"max_risk_pct"`
	MaxRiskPerTradePct float64 `json:"max_risk_per_trade_pct" yaml:"max_risk_per_trade_pct"`
	DefaultSLATRFactor float64 `json:"default_sl_atr_factor" yaml:"default_sl_atr_factor"`
}

// DefaultSizerConfig risks between 0.25% and 2%, never more than 1% per
// trade, with a 1.5 ATR stop when none is given.
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{
		MinRiskPct:         0.25,
		MaxRiskPct:         2.0,
		MaxRiskPerTradePct: 1.0,
		DefaultSLATRFactor: 1.5,
	}
}

func (c SizerConfig) Validate() error {
	if c.MinRiskPct < 0 || c.MaxRiskPct < 0 || c.MaxRiskPerTradePct < 0 || c.DefaultSLATRFactor < 0 {
		return fmt.Errorf("%w: sizer percentages and atr factor must not be negative", ErrConfig)
	}
	if c.MinRiskPct > c.MaxRiskPct {
		return fmt.Errorf("%w: min_risk_pct %.2f exceeds max_risk_pct %.2f", ErrConfig, c.MinRiskPct, c.MaxRiskPct)
	}
	if c.MaxRiskPct > 100 || c.MaxRiskPerTradePct > 100 {
		return fmt.Errorf("%w: risk percentages must not exceed 100", ErrConfig)
	}
	return nil
}

// SizeRequest describes a contemplated entry. StopPrice and ATR are
// optional; Step and MinNotional are exchange filters, zero when absent.
// QuoteToAccount converts quote currency to account currency; zero means
// they match.
type SizeRequest struct {
	Symbol       string      `json:"symbol"`
	Side         market.Side `json:"side"`
	EntryPrice   float64     `json:"entry_price"`
	StopPrice    *float64    `json:"sl_price,omitempty"`
	TakeProfit   *float64    `json:"take_profit,omitempty"`
	Equity       float64     `json:"equity"`
	AgentRiskPct float64     `json:"agent_risk_pct"`
	ATR          *float64    `json:"atr,omitempty"`
	Step         float64     `json:"step,omitempty"`
	MinNotional  float64     `json:"min_notional,omitempty"`

	QuoteToAccount float64 `json:"quote_to_account,omitempty"`
}

func (r SizeRequest) rate() float64 {
	if r.QuoteToAccount > 0 {
		return r.QuoteToAccount
	}
	return 1.0
}

// SizeResult is the capped position size with the tags of every constraint
// that altered it, in the order they applied.
type SizeResult struct {
	Size             float64  `json:"size"`
	EffectiveRiskPct float64  `json:"effective_risk_pct"`
	CappedBy         []string `json:"capped_by"`
	StopDistance     float64  `json:"stop_distance"`
	RiskCash         float64  `json:"risk_cash"`
	PlannedRisk      float64  `json:"planned_risk"`
	PlannedRiskPct   float64  `json:"planned_risk_pct"`
	RR               float64  `json:"rr,omitempty"`
}

// SizingState flows through the constraint chain.
type SizingState struct {
	Req SizeRequest
	Cfg SizerConfig

	RiskPct      float64
	StopDistance float64
	RiskCash     float64
	Size         float64

	// Halted stops the chain; Size stays zero.
	Halted bool
}

// Constraint is one ordered sizing step. It returns the updated state and
// a reason tag, or "" when it changed nothing worth recording.
type Constraint interface {
	Apply(s SizingState) (SizingState, string)
}

// ConstraintFunc adapts a function to Constraint.
type ConstraintFunc func(s SizingState) (SizingState, string)

func (f ConstraintFunc) Apply(s SizingState) (SizingState, string) { return f(s) }

// DefaultConstraints is the standard chain. Order matters.
func DefaultConstraints() []Constraint {
	return []Constraint{
		ConstraintFunc(clampRiskRange),
		ConstraintFunc(capRiskPerTrade),
		ConstraintFunc(resolveStop),
		ConstraintFunc(sizeFromRisk),
		ConstraintFunc(roundToStep),
		ConstraintFunc(enforceMinNotional),
	}
}

// Sizer turns a risk fraction into a position size. Deterministic: the
// same request always yields the same size and tags.
type Sizer struct {
	cfg         SizerConfig
	constraints []Constraint
}

// NewSizer validates cfg. With no constraints given it uses
// DefaultConstraints.
func NewSizer(cfg SizerConfig, constraints ...Constraint) (*Sizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(constraints) == 0 {
		constraints = DefaultConstraints()
	}
	return &Sizer{cfg: cfg, constraints: constraints}, nil
}

func (z *Sizer) Config() SizerConfig { return z.cfg }

// Size runs the constraint chain over req.
func (z *Sizer) Size(req SizeRequest) SizeResult {
	st := SizingState{Req: req, Cfg: z.cfg, RiskPct: req.AgentRiskPct}
	tags := []string{}

	for _, c := range z.constraints {
		if st.Halted {
			break
		}
		var tag string
		st, tag = c.Apply(st)
		if tag != "" {
			tags = append(tags, tag)
		}
	}

	res := SizeResult{
		EffectiveRiskPct: st.RiskPct,
		CappedBy:         tags,
		StopDistance:     st.StopDistance,
		RiskCash:         st.RiskCash,
	}
	if !st.Halted && st.Size > 0 {
		res.Size = st.Size
	}
	res.PlannedRisk = PlannedRiskUSD(res.Size, req.EntryPrice, req.EntryPrice-res.StopDistance, req.rate())
	if req.Equity > 0 {
		res.PlannedRiskPct = RiskPct(res.PlannedRisk, req.Equity) * 100
	}
	if req.TakeProfit != nil && res.StopDistance > 0 {
		res.RR = RR(req.EntryPrice, req.EntryPrice-res.StopDistance, *req.TakeProfit)
	}
	return res
}

// SizeWithDecision sizes only when the admission decision allows new
// orders.
func (z *Sizer) SizeWithDecision(req SizeRequest, d Decision) SizeResult {
	if !d.Allow {
		return SizeResult{CappedBy: []string{TagAdmissionBlocked}}
	}
	return z.Size(req)
}

// clampRiskRange bounds the requested risk. A NaN request is treated as
// the minimum.
func clampRiskRange(s SizingState) (SizingState, string) {
	switch {
	case math.IsNaN(s.RiskPct), s.RiskPct < s.Cfg.MinRiskPct:
		s.RiskPct = s.Cfg.MinRiskPct
		return s, TagMinRiskClamp
	case s.RiskPct > s.Cfg.MaxRiskPct:
		s.RiskPct = s.Cfg.MaxRiskPct
		return s, TagMaxRiskClamp
	}
	return s, ""
}

func capRiskPerTrade(s SizingState) (SizingState, string) {
	if s.RiskPct > s.Cfg.MaxRiskPerTradePct {
		s.RiskPct = s.Cfg.MaxRiskPerTradePct
		return s, TagMaxRiskPerTrade
	}
	if s.RiskPct < 0 {
		s.RiskPct = 0
	}
	return s, ""
}

func resolveStop(s SizingState) (SizingState, string) {
	var tag string
	switch {
	case s.Req.StopPrice != nil:
		s.StopDistance = math.Abs(s.Req.EntryPrice - *s.Req.StopPrice)
	case s.Req.ATR != nil && *s.Req.ATR > 0 && s.Cfg.DefaultSLATRFactor > 0:
		s.StopDistance = *s.Req.ATR * s.Cfg.DefaultSLATRFactor
		tag = TagDefaultSLATR
	default:
		s.Halted = true
		return s, TagMissingSLInfo
	}
	if s.StopDistance <= 0 || math.IsNaN(s.StopDistance) || math.IsInf(s.StopDistance, 0) {
		s.StopDistance = 0
		s.Halted = true
		if tag != "" {
			return s, tag
		}
		return s, TagZeroStopDistance
	}
	return s, tag
}

func sizeFromRisk(s SizingState) (SizingState, string) {
	if s.Req.Equity <= 0 {
		s.Halted = true
		return s, TagNonPositiveEquity
	}
	s.RiskCash = s.Req.Equity * s.RiskPct / 100
	s.Size = s.RiskCash / (s.StopDistance * s.Req.rate())
	return s, ""
}

// roundToStep floors the size to the exchange step in decimal so 0.3/0.1
// style steps do not lose a unit to binary rounding.
func roundToStep(s SizingState) (SizingState, string) {
	if s.Req.Step <= 0 || s.Size <= 0 {
		return s, ""
	}
	step := decimal.NewFromFloat(s.Req.Step)
	size := decimal.NewFromFloat(s.Size)
	rounded := size.Div(step).Floor().Mul(step)
	if rounded.Equal(size) {
		return s, ""
	}
	s.Size = rounded.InexactFloat64()
	return s, TagStepRounding
}

func enforceMinNotional(s SizingState) (SizingState, string) {
	if s.Req.MinNotional <= 0 {
		return s, ""
	}
	notional := decimal.NewFromFloat(s.Size).Mul(decimal.NewFromFloat(s.Req.EntryPrice)).Abs()
	if notional.LessThan(decimal.NewFromFloat(s.Req.MinNotional)) {
		s.Size = 0
		return s, TagMinNotionalClamp
	}
	return s, ""
}
