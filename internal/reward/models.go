package reward

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// LanguageDetector identifies the language of a text as an ISO 639-1 code.
type LanguageDetector interface {
	Detect(text string) (string, error)
}

// SimilarityModel scores bilingual semantic similarity in [0,1].
type SimilarityModel interface {
	Similarity(ctx context.Context, source, target string) (float64, error)
}

// QualityEstimator returns a reference-free quality estimate in [-1,1].
type QualityEstimator interface {
	Quality(ctx context.Context, source, target string) (float64, error)
}

// PerplexityModel returns the language-model perplexity of a text.
type PerplexityModel interface {
	Perplexity(ctx context.Context, text string) (float64, error)
}

// Sentiment is a classifier verdict.
type Sentiment struct {
	Label string  `json:"label"` // Label is the predicted class
	Score float64 `json:"score"` // Score is the class confidence
}

// SentimentModel classifies the sentiment of a text.
type SentimentModel interface {
	Sentiment(ctx context.Context, text string) (Sentiment, error)
}

// Models bundles the scoring primitives the engine depends on.
type Models struct {
	Detector   LanguageDetector // Detector gates the validity filter
	Similarity SimilarityModel  // Similarity feeds the literal axis
	Quality    QualityEstimator // Quality feeds the literal axis
	Perplexity PerplexityModel  // Perplexity feeds the fluency signal
	Sentiment  SentimentModel   // Sentiment feeds the sentiment agreement signal
}

// validate checks that every model is set.
func (m Models) validate() error {
	switch {
	case m.Detector == nil:
		return fmt.Errorf("language detector is required")
	case m.Similarity == nil:
		return fmt.Errorf("similarity model is required")
	case m.Quality == nil:
		return fmt.Errorf("quality estimator is required")
	case m.Perplexity == nil:
		return fmt.Errorf("perplexity model is required")
	case m.Sentiment == nil:
		return fmt.Errorf("sentiment model is required")
	}

	return nil
}

// WhatlangDetector detects languages locally with trigram profiles,
// restricted to the languages prompts can target.
type WhatlangDetector struct {
	options       whatlanggo.Options // options carries the language whitelist
	minConfidence float64            // minConfidence rejects weaker detections, 0 accepts all
}

// NewWhatlangDetector creates a detector that only answers with one of the
// given ISO 639-1 codes. An empty list considers every supported language.
func NewWhatlangDetector(languages []string, minConfidence float64) *WhatlangDetector {
	wanted := make(map[string]bool, len(languages))
	for _, l := range languages {
		wanted[l] = true
	}

	d := &WhatlangDetector{minConfidence: minConfidence}

	if len(wanted) == 0 {
		return d
	}

	d.options.Whitelist = make(map[whatlanggo.Lang]bool, len(wanted))

	for lang := range whatlanggo.Langs {
		if wanted[isoCode(lang)] {
			d.options.Whitelist[lang] = true
		}
	}

	return d
}

// Detect returns the ISO 639-1 code of text, or "" when no language is
// recognized with enough confidence.
func (d *WhatlangDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	info := whatlanggo.DetectWithOptions(text, d.options)
	if info.Confidence < d.minConfidence {
		return "", nil
	}

	return isoCode(info.Lang), nil
}

// isoCode returns the ISO 639-1 code of lang. Persian has none in
// whatlanggo's table and is reported as "fa".
func isoCode(lang whatlanggo.Lang) string {
	if lang == whatlanggo.Pes {
		return "fa"
	}

	return lang.Iso6391()
}
