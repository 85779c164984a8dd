package classify

import (
	"math"

	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
)

// Thresholds holds the tunable cutoffs for each rule. All values come from
// configuration; nothing here is hard-coded into the rule engine.
type Thresholds struct {
	// LiquidatorFillPct: minimum share of liquidation fills.
	LiquidatorFillPct float64

	// HFTMakerPct / HFTMaxAbsMtmTV: maker share floor and per-dollar edge
	// ceiling for market-making flow.
	HFTMakerPct    float64
	HFTMaxAbsMtmTV float64

	// SmartMinNetPnl / SmartMinMtmTV / SmartMinRiskRatio: floors for
	// profitable directional traders.
	SmartMinNetPnl    float64
	SmartMinMtmTV     float64
	SmartMinRiskRatio float64
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LiquidatorFillPct: 0.20,
		HFTMakerPct:       0.70,
		HFTMaxAbsMtmTV:    0.0010,
		SmartMinNetPnl:    100_000,
		SmartMinMtmTV:     0.0010,
		SmartMinRiskRatio: 1.0,
	}
}

// Rule is one (predicate, tag) pair in the ordered chain.
type Rule struct {
	Tag   types.Classification
	Match func(p *types.TraderProfile) bool
}

// Classifier assigns an archetype tag by evaluating an ordered rule list,
// first match wins. Rule order is load-bearing: a profile matching both
// the liquidator and HFT rules is a LIQUIDATOR.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the canonical rule chain for the given
// thresholds.
func New(t Thresholds) *Classifier {
	return &Classifier{
		rules: []Rule{
			{
				Tag: types.TagLiquidator,
				Match: func(p *types.TraderProfile) bool {
					if p.TotalFills == 0 {
						return false
					}
					return float64(p.LiquidationFills)/float64(p.TotalFills) >= t.LiquidatorFillPct
				},
			},
			{
				Tag: types.TagHFT,
				Match: func(p *types.TraderProfile) bool {
					return p.MakerPct >= t.HFTMakerPct && math.Abs(p.MtmTV) <= t.HFTMaxAbsMtmTV
				},
			},
			{
				Tag: types.TagSmartDirectional,
				Match: func(p *types.TraderProfile) bool {
					return p.NetPnl.InexactFloat64() >= t.SmartMinNetPnl &&
						p.MtmTV >= t.SmartMinMtmTV &&
						p.RiskRatio >= t.SmartMinRiskRatio
				},
			},
		},
	}
}

// Classify returns the first matching tag, RETAIL when nothing matches.
// Pure and deterministic: identical profiles always classify identically.
func (c *Classifier) Classify(p *types.TraderProfile) types.Classification {
	for _, rule := range c.rules {
		if rule.Match(p) {
			ClassificationsTotal.WithLabelValues(string(rule.Tag)).Inc()
			return rule.Tag
		}
	}
	ClassificationsTotal.WithLabelValues(string(types.TagRetail)).Inc()
	return types.TagRetail
}
