// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package threshold

import (
	"strings"
	"unicode/utf8"
)

// CognitiveContext describes the shape of a query.
type CognitiveContext string

const (
	ContextFocused         CognitiveContext = "focused"
	ContextAnalytical      CognitiveContext = "analytical"
	ContextAssociativeFlow CognitiveContext = "associative_flow"
	ContextDivergent       CognitiveContext = "divergent"
	ContextSemantic        CognitiveContext = "semantic"
)

// Concept is the semantic category of a keyword set.
type Concept string

const (
	ConceptEmotional   Concept = "emotional"
	ConceptCognitive   Concept = "cognitive"
	ConceptAbstract    Concept = "abstract"
	ConceptAssociative Concept = "associative"
	ConceptConcrete    Concept = "concrete"
)

// HighIntensity is the EmotionalIntensity at or above which a query counts as intense.
const HighIntensity = 0.7

type contextRule struct {
	ctx   CognitiveContext
	match func(q Context, highVolume int) bool
}

// contextRules is evaluated in order; semantic is the terminal fallback.
var contextRules = []contextRule{
	{ContextFocused, func(q Context, _ int) bool { return q.hasFilters() && q.hasKeywords() }},
	{ContextAnalytical, func(q Context, _ int) bool { return q.hasFilters() }},
	{ContextAssociativeFlow, func(q Context, _ int) bool { return q.hasKeywords() }},
	{ContextDivergent, func(q Context, hv int) bool { return hv > 0 && q.TopK > hv }},
}

// ClassifyContext returns the cognitive context of q. highVolumeTopK is the
// result count above which a query is divergent.
func ClassifyContext(q Context, highVolumeTopK int) CognitiveContext {
	for _, r := range contextRules {
		if r.match(q, highVolumeTopK) {
			return r.ctx
		}
	}
	return ContextSemantic
}

var conceptVocab = []struct {
	concept Concept
	terms   []string
}{
	{ConceptEmotional, emotionalTerms},
	{ConceptCognitive, cognitiveTerms},
	{ConceptAbstract, abstractTerms},
	{ConceptAssociative, associativeTerms},
}

// ClassifyConcept picks the category matched by the most keywords.
// Ties and no matches resolve to ConceptConcrete.
func ClassifyConcept(keywords []string) Concept {
	best, bestCount, tie := ConceptConcrete, 0, false
	for _, cv := range conceptVocab {
		n := 0
		for _, kw := range keywords {
			if matchesAny(kw, cv.terms) {
				n++
			}
		}
		switch {
		case n > bestCount:
			best, bestCount, tie = cv.concept, n, false
		case n == bestCount && n > 0:
			tie = true
		}
	}
	if bestCount == 0 || tie {
		return ConceptConcrete
	}
	return best
}

// EmotionalIntensity estimates intensity in [0,1]. Without any intensity
// vocabulary it falls back to keyword complexity: long or multi-word terms
// raise the score.
func EmotionalIntensity(keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	for _, kw := range keywords {
		if matchesAny(kw, highIntensityTerms) {
			return 0.9
		}
	}
	for _, kw := range keywords {
		if matchesAny(kw, mediumIntensityTerms) {
			return 0.6
		}
	}

	total, complex := 0, false
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		n := utf8.RuneCountInString(kw)
		total += n
		if n > 12 || strings.ContainsAny(kw, " \t") {
			complex = true
		}
	}
	avg := float64(total) / float64(len(keywords))

	score := min(avg/20, 0.5)
	if complex {
		score += 0.3
	}
	return min(score, 1)
}

func matchesAny(keyword string, terms []string) bool {
	kw := strings.ToLower(keyword)
	if kw == "" {
		return false
	}
	for _, t := range terms {
		if strings.Contains(kw, t) {
			return true
		}
	}
	return false
}
