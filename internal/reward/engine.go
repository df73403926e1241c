// Package reward turns miner translations into composite quality scores.
package reward

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"Lingua/internal/logger"
	"Lingua/internal/subnet"
)

const (
	// DefaultLatencyThreshold is the elapsed time that still earns full latency reward.
	DefaultLatencyThreshold = 3 * time.Second

	// DefaultLatencyDecay is the exponential decay per second past the threshold.
	DefaultLatencyDecay = 0.1

	// defaultCacheSize bounds the source-side metric cache.
	defaultCacheSize = 256
)

// Config tunes the engine.
type Config struct {
	LatencyThreshold time.Duration // LatencyThreshold is the full-reward latency bound
	LatencyDecay     float64       // LatencyDecay is the decay constant past the bound
	CacheSize        int           // CacheSize bounds the source-side cache entries
}

// Engine scores responses against the source text.
type Engine struct {
	models Models     // models are the scoring primitives
	cfg    Config     // cfg holds the latency policy
	cache  *lru.Cache // cache holds source perplexity and sentiment
}

// New creates an engine. Zero config fields take their defaults.
func New(models Models, cfg Config) (*Engine, error) {
	if err := models.validate(); err != nil {
		return nil, err
	}

	if cfg.LatencyThreshold == 0 {
		cfg.LatencyThreshold = DefaultLatencyThreshold
	}

	if cfg.LatencyDecay == 0 {
		cfg.LatencyDecay = DefaultLatencyDecay
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache:\n%w", err)
	}

	return &Engine{models: models, cfg: cfg, cache: cache}, nil
}

// Score returns one record per response, in input order.
// Invalid responses and responses whose scoring fails get a zero composite.
func (e *Engine) Score(ctx context.Context, source, targetLanguage string, responses []subnet.Response) []subnet.ScoreRecord {
	records := make([]subnet.ScoreRecord, len(responses))

	for i, r := range responses {
		records[i] = zeroRecord(r.UID)

		if !e.valid(r, targetLanguage) {
			continue
		}

		metrics, err := e.metrics(ctx, source, r)
		if err != nil {
			logger.Error("scoring failed",
				"uid", r.UID,
				"source", source,
				"response", r.Answer,
				"error", err,
			)
			continue
		}

		records[i] = subnet.ScoreRecord{
			UID:       r.UID,
			Composite: Composite(metrics[MetricLiteral], metrics[MetricContextual], metrics[MetricLatency]),
			Metrics:   metrics,
		}
	}

	return records
}

// valid checks presence and target language of a response.
func (e *Engine) valid(r subnet.Response, targetLanguage string) bool {
	if !r.Received || strings.TrimSpace(r.Answer) == "" {
		return false
	}

	lang, err := e.models.Detector.Detect(r.Answer)
	if err != nil {
		logger.Warn("language detection failed", "uid", r.UID, "error", err)
		return false
	}

	if lang != targetLanguage {
		logger.Debug("wrong response language", "uid", r.UID, "detected", lang, "want", targetLanguage)
		return false
	}

	return true
}

// metrics computes every raw metric and both axes for a valid response.
func (e *Engine) metrics(ctx context.Context, source string, r subnet.Response) (map[string]float64, error) {
	target := r.Answer

	similarity, err := e.models.Similarity.Similarity(ctx, source, target)
	if err != nil {
		return nil, fmt.Errorf("semantic similarity:\n%w", err)
	}

	quality, err := e.models.Quality.Quality(ctx, source, target)
	if err != nil {
		return nil, fmt.Errorf("quality estimation:\n%w", err)
	}

	fluency, err := e.fluency(ctx, source, target)
	if err != nil {
		return nil, err
	}

	sentiment, err := e.sentiment(ctx, source, target)
	if err != nil {
		return nil, err
	}

	m := map[string]float64{
		MetricSemantic:  clamp01(similarity),
		MetricQuality:   clamp01((quality + 1) / 2),
		MetricEdit:      EditSimilarity(source, target),
		MetricLexical:   LexicalPrecision(source, target),
		MetricFluency:   fluency,
		MetricSentiment: sentiment,
		MetricLatency:   Latency(r.Elapsed, e.cfg.LatencyThreshold, e.cfg.LatencyDecay),
	}

	m[MetricLiteral] = clamp01((m[MetricSemantic] + m[MetricQuality] + m[MetricEdit]) / 3)
	m[MetricContextual] = clamp01((m[MetricLexical] + m[MetricFluency] + m[MetricSentiment]) / 3)

	return m, nil
}

// fluency compares target perplexity to the cached source perplexity.
func (e *Engine) fluency(ctx context.Context, source, target string) (float64, error) {
	sourcePPL, err := cached(e, "ppl\x00"+source, func() (float64, error) {
		return e.models.Perplexity.Perplexity(ctx, source)
	})
	if err != nil {
		return 0, fmt.Errorf("source perplexity:\n%w", err)
	}

	if sourcePPL <= 0 {
		return 0, fmt.Errorf("source perplexity must be positive, got %v", sourcePPL)
	}

	targetPPL, err := e.models.Perplexity.Perplexity(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("target perplexity:\n%w", err)
	}

	return Fluency(targetPPL / sourcePPL), nil
}

// sentiment compares target sentiment to the cached source sentiment.
func (e *Engine) sentiment(ctx context.Context, source, target string) (float64, error) {
	sourceSent, err := cached(e, "sent\x00"+source, func() (Sentiment, error) {
		return e.models.Sentiment.Sentiment(ctx, source)
	})
	if err != nil {
		return 0, fmt.Errorf("source sentiment:\n%w", err)
	}

	targetSent, err := e.models.Sentiment.Sentiment(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("target sentiment:\n%w", err)
	}

	return SentimentAgreement(sourceSent, targetSent), nil
}

// cached memoizes successful source-side model calls.
func cached[T any](e *Engine, key string, compute func() (T, error)) (T, error) {
	if v, ok := e.cache.Get(key); ok {
		return v.(T), nil
	}

	v, err := compute()
	if err != nil {
		return v, err
	}

	e.cache.Add(key, v)

	return v, nil
}

// zeroRecord is the record of an invalid or unscorable response.
func zeroRecord(uid subnet.UID) subnet.ScoreRecord {
	return subnet.ScoreRecord{
		UID: uid,
		Metrics: map[string]float64{
			MetricSemantic:   0,
			MetricQuality:    0,
			MetricEdit:       0,
			MetricLexical:    0,
			MetricFluency:    0,
			MetricSentiment:  0,
			MetricLatency:    0,
			MetricLiteral:    0,
			MetricContextual: 0,
		},
	}
}
