package reward

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Metric names as reported in score records and feedback.
const (
	MetricSemantic   = "semantic_similarity"
	MetricQuality    = "quality_estimation"
	MetricEdit       = "edit_distance"
	MetricLexical    = "lexical_precision"
	MetricFluency    = "fluency"
	MetricSentiment  = "sentiment"
	MetricLatency    = "latency"
	MetricLiteral    = "literal"
	MetricContextual = "contextual"
)

// Composite weights.
const (
	contextualWeight = 0.5
	literalWeight    = 0.3
	latencyWeight    = 0.2
)

// LexicalPrecision is the n-gram precision of target against source.
// One-word targets score 1, two-word targets use bigrams, longer ones
// average bigram and trigram precision.
func LexicalPrecision(source, target string) float64 {
	targetWords := strings.Fields(target)
	sourceWords := strings.Fields(source)

	switch len(targetWords) {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return ngramPrecision(sourceWords, targetWords, 2)
	default:
		return (ngramPrecision(sourceWords, targetWords, 2) + ngramPrecision(sourceWords, targetWords, 3)) / 2
	}
}

// ngramPrecision counts clipped n-gram matches over the target n-gram count.
func ngramPrecision(source, target []string, n int) float64 {
	targetGrams := ngrams(target, n)
	if len(targetGrams) == 0 {
		return 0
	}

	sourceCounts := make(map[string]int)
	for _, g := range ngrams(source, n) {
		sourceCounts[g]++
	}

	matches := 0
	for _, g := range targetGrams {
		if sourceCounts[g] > 0 {
			sourceCounts[g]--
			matches++
		}
	}

	return float64(matches) / float64(len(targetGrams))
}

// ngrams joins consecutive words with a separator that cannot appear in a field.
func ngrams(words []string, n int) []string {
	if len(words) < n {
		return nil
	}

	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], "\x00"))
	}

	return out
}

// EditSimilarity is 1 - distance/max(len), measured in runes.
// Two empty strings are identical.
func EditSimilarity(source, target string) float64 {
	maxLen := max(utf8.RuneCountInString(source), utf8.RuneCountInString(target))
	if maxLen == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(source, target))/float64(maxLen)
}

// Fluency bounds a target/source perplexity ratio to (0,1].
func Fluency(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	}

	return 1 / (1 + ratio)
}

// SentimentAgreement is 0 when labels differ and 1-|delta| otherwise.
func SentimentAgreement(source, target Sentiment) float64 {
	if source.Label != target.Label {
		return 0
	}

	return clamp01(1 - math.Abs(source.Score-target.Score))
}

// Latency is 1 up to threshold, then decays exponentially per second late.
func Latency(elapsed, threshold time.Duration, decay float64) float64 {
	if elapsed <= threshold {
		return 1
	}

	return math.Exp(-decay * (elapsed - threshold).Seconds())
}

// Composite blends the axes with the fixed policy weights.
func Composite(literal, contextual, latency float64) float64 {
	return clamp01(contextualWeight*contextual + literalWeight*literal + latencyWeight*latency)
}

// clamp01 clamps v to [0,1]; NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
