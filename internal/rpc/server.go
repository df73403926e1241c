package rpc

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"Lingua/internal/network"
	"Lingua/internal/subnet"
)

// Handler is the miner side of the protocol.
type Handler interface {
	// Generate translates the prompt for the calling validator.
	Generate(ctx context.Context, validator ed25519.PublicKey, p subnet.Prompt) (string, error)

	// Score receives the validator's evaluation and acknowledges it.
	Score(ctx context.Context, validator ed25519.PublicKey, rec subnet.ScoreRecord) (bool, error)
}

// Server answers validator calls on a serving node.
type Server struct {
	handler Handler // handler implements the miner behavior
	codec   *codec  // codec frames and compresses payloads
}

// Serve registers h as the request handler of node.
func Serve(node *network.Node, h Handler) (*Server, error) {
	c, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("create codec:\n%w", err)
	}

	s := &Server{handler: h, codec: c}
	node.OnRequest(s.handle)

	return s, nil
}

// handle routes a request frame to the handler.
func (s *Server) handle(p *network.Peer, frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, fmt.Errorf("%w: short request", ErrMalformedResponse)
	}

	switch kind(frame[0]) {
	case kindGenerate:
		return s.handleGenerate(p, frame)
	case kindScore:
		return s.handleScore(p, frame)
	default:
		return nil, fmt.Errorf("unknown request kind %d", frame[0])
	}
}

// handleGenerate answers a generate request within its advertised timeout.
func (s *Server) handleGenerate(p *network.Peer, frame []byte) ([]byte, error) {
	payload, err := s.codec.decode(frame, kindGenerate)
	if err != nil {
		return nil, err
	}

	prompt, timeout, err := parseGenerateRequest(payload)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	answer, err := s.handler.Generate(ctx, p.PublicKey(), prompt)
	if err != nil {
		return nil, fmt.Errorf("generate:\n%w", err)
	}

	return s.codec.encode(kindGenerateResult, buildGenerateResponse(answer)), nil
}

// handleScore forwards a score report to the handler.
func (s *Server) handleScore(p *network.Peer, frame []byte) ([]byte, error) {
	payload, err := s.codec.decode(frame, kindScore)
	if err != nil {
		return nil, err
	}

	rec, err := parseScoreReport(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ack, err := s.handler.Score(ctx, p.PublicKey(), rec)
	if err != nil {
		return nil, fmt.Errorf("score:\n%w", err)
	}

	return s.codec.encode(kindScoreAck, buildScoreAck(ack)), nil
}

// Close releases codec resources. The node is owned by the caller.
func (s *Server) Close() {
	s.codec.close()
}
