// Package prompt produces the per-round translation task.
package prompt

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"Lingua/internal/subnet"
)

// ErrTooFewLanguages is returned when fewer than two languages are configured.
var ErrTooFewLanguages = errors.New("at least two languages are required")

// Corpus returns a random source record in the requested language.
type Corpus interface {
	RandomRecord(language string) (string, error)
}

// Sampler picks a language pair and a source record each round.
type Sampler struct {
	languages []string   // languages is the configured language set
	corpus    Corpus     // corpus supplies source texts
	rng       *rand.Rand // rng drives language selection
	mu        sync.Mutex // mu guards rng
}

// NewSampler creates a Sampler over the given languages.
// Duplicate languages are collapsed; fewer than two distinct ones is an error.
func NewSampler(languages []string, corpus Corpus, rng *rand.Rand) (*Sampler, error) {
	seen := make(map[string]bool, len(languages))
	unique := make([]string, 0, len(languages))

	for _, l := range languages {
		if l == "" || seen[l] {
			continue
		}

		seen[l] = true
		unique = append(unique, l)
	}

	if len(unique) < 2 {
		return nil, fmt.Errorf("%w: got %v", ErrTooFewLanguages, languages)
	}

	if corpus == nil {
		return nil, fmt.Errorf("corpus is required")
	}

	return &Sampler{languages: unique, corpus: corpus, rng: rng}, nil
}

// Sample returns a prompt with a uniformly chosen source language and a
// uniformly chosen, different target language.
func (s *Sampler) Sample() (subnet.Prompt, error) {
	source, target := s.pickPair()

	text, err := s.corpus.RandomRecord(source)
	if err != nil {
		return subnet.Prompt{}, fmt.Errorf("sample %s record:\n%w", source, err)
	}

	return subnet.Prompt{
		Text:           text,
		SourceLanguage: source,
		TargetLanguage: target,
	}, nil
}

// Languages returns a copy of the configured language set.
func (s *Sampler) Languages() []string {
	out := make([]string, len(s.languages))
	copy(out, s.languages)

	return out
}

// pickPair draws a source language, then a target from the remaining ones.
func (s *Sampler) pickPair() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.rng.Intn(len(s.languages))

	// Draw from n-1 slots and skip over the source index
	ti := s.rng.Intn(len(s.languages) - 1)
	if ti >= si {
		ti++
	}

	return s.languages[si], s.languages[ti]
}
