// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

// Package threshold picks a similarity cutoff for a query from its shape.
//
// Recall is favoured (a low cutoff) whenever the keywords read as emotional,
// abstract, or associative. Precision is favoured only when the caller adds
// structural constraints through metadata filters.
package threshold

import "strings"

// Tiers holds the cutoffs the calculator chooses between.
type Tiers struct {
	Precise        float64 `mapstructure:"precise"`
	Balanced       float64 `mapstructure:"balanced"`
	Exploratory    float64 `mapstructure:"exploratory"`
	Min            float64 `mapstructure:"min"`
	Max            float64 `mapstructure:"max"`
	HighVolumeTopK int     `mapstructure:"high_volume_top_k"`
}

// DefaultTiers returns the built-in cutoffs.
func DefaultTiers() Tiers {
	return Tiers{
		Precise:        0.70,
		Balanced:       0.50,
		Exploratory:    0.25,
		Min:            0.0,
		Max:            1.0,
		HighVolumeTopK: 15,
	}
}

// Context is the part of a query that drives threshold selection.
// Requested, when set and non-negative, is returned verbatim.
type Context struct {
	Keywords  []string
	Filters   map[string]any
	TopK      int
	Requested *float64
}

func (c Context) hasKeywords() bool {
	for _, k := range c.Keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

func (c Context) hasFilters() bool { return len(c.Filters) > 0 }

// Decision is the result of Explain.
type Decision struct {
	Threshold float64
	Context   CognitiveContext
	Concept   Concept
	Intensity float64
	Explicit  bool
}

type decisionRule struct {
	match func(d Decision) bool
	pick  func(t Tiers) float64
}

var (
	precise     = func(t Tiers) float64 { return t.Precise }
	balanced    = func(t Tiers) float64 { return t.Balanced }
	exploratory = func(t Tiers) float64 { return t.Exploratory }
)

// decisionTable is evaluated top to bottom; the first match wins.
var decisionTable = []decisionRule{
	{func(d Decision) bool { return d.Context == ContextFocused }, precise},
	{func(d Decision) bool { return d.Context == ContextAnalytical }, balanced},
	{func(d Decision) bool { return d.Concept == ConceptEmotional || d.Concept == ConceptAbstract }, exploratory},
	{func(d Decision) bool { return d.Concept == ConceptAssociative || d.Context == ContextAssociativeFlow }, exploratory},
	{func(d Decision) bool { return d.Concept == ConceptCognitive && d.Intensity >= HighIntensity }, exploratory},
	{func(d Decision) bool { return d.Concept == ConceptCognitive }, balanced},
	{func(d Decision) bool { return d.Context == ContextDivergent }, exploratory},
}

// Calculator selects thresholds. It is safe for concurrent use.
type Calculator struct {
	tiers Tiers
}

// NewCalculator returns a Calculator using tiers.
func NewCalculator(tiers Tiers) *Calculator {
	if tiers.Min > tiers.Max {
		tiers.Min, tiers.Max = tiers.Max, tiers.Min
	}
	return &Calculator{tiers: tiers}
}

// Tiers returns the configured cutoffs.
func (c *Calculator) Tiers() Tiers { return c.tiers }

// Calculate returns the threshold for q.
func (c *Calculator) Calculate(q Context) float64 {
	return c.Explain(q).Threshold
}

// Explain returns the threshold for q along with the classification behind it.
func (c *Calculator) Explain(q Context) Decision {
	if q.Requested != nil && *q.Requested >= 0 {
		return Decision{Threshold: *q.Requested, Explicit: true}
	}

	d := Decision{
		Context:   ClassifyContext(q, c.tiers.HighVolumeTopK),
		Concept:   ClassifyConcept(q.Keywords),
		Intensity: EmotionalIntensity(q.Keywords),
	}
	d.Threshold = c.tiers.Select(d.Context, d.Concept, d.Intensity)
	return d
}

// Select runs the decision table over an already classified query.
// Anything the table does not match gets the exploratory cutoff.
func (t Tiers) Select(ctx CognitiveContext, concept Concept, intensity float64) float64 {
	d := Decision{Context: ctx, Concept: concept, Intensity: intensity}
	for _, r := range decisionTable {
		if r.match(d) {
			return r.pick(t)
		}
	}
	return t.Exploratory
}

// IsValid reports whether t lies within [Min, Max].
func (c *Calculator) IsValid(t float64) bool {
	return t >= c.tiers.Min && t <= c.tiers.Max
}

// Clamp bounds t to [Min, Max].
func (c *Calculator) Clamp(t float64) float64 {
	return min(max(t, c.tiers.Min), c.tiers.Max)
}
