package reward

import (
	"context"
	"net/http"
	"strings"
	"time"

	"Lingua/internal/httpjson"
)

// RemoteModels calls a scoring service exposing one JSON endpoint per
// primitive. It satisfies every model interface but LanguageDetector.
type RemoteModels struct {
	baseURL string       // baseURL is the service root
	client  *http.Client // client carries the per-request timeout
}

// NewRemoteModels creates a client for the scoring service at baseURL.
func NewRemoteModels(baseURL string, timeout time.Duration) *RemoteModels {
	return &RemoteModels{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// pairRequest is the body of pairwise endpoints.
type pairRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// textRequest is the body of single-text endpoints.
type textRequest struct {
	Text string `json:"text"`
}

// scoreReply carries a scalar result.
type scoreReply struct {
	Score float64 `json:"score"`
}

// Similarity calls POST /similarity.
func (m *RemoteModels) Similarity(ctx context.Context, source, target string) (float64, error) {
	var reply scoreReply
	err := httpjson.PostJSON(ctx, m.client, m.baseURL+"/similarity", pairRequest{source, target}, &reply)

	return reply.Score, err
}

// Quality calls POST /qe.
func (m *RemoteModels) Quality(ctx context.Context, source, target string) (float64, error) {
	var reply scoreReply
	err := httpjson.PostJSON(ctx, m.client, m.baseURL+"/qe", pairRequest{source, target}, &reply)

	return reply.Score, err
}

// Perplexity calls POST /perplexity.
func (m *RemoteModels) Perplexity(ctx context.Context, text string) (float64, error) {
	var reply scoreReply
	err := httpjson.PostJSON(ctx, m.client, m.baseURL+"/perplexity", textRequest{text}, &reply)

	return reply.Score, err
}

// Sentiment calls POST /sentiment.
func (m *RemoteModels) Sentiment(ctx context.Context, text string) (Sentiment, error) {
	var reply Sentiment
	err := httpjson.PostJSON(ctx, m.client, m.baseURL+"/sentiment", textRequest{text}, &reply)

	return reply, err
}
