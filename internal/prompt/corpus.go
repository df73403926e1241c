package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"Lingua/internal/logger"
)

const (
	// minRecordLength is the minimum trimmed length of a usable record.
	minRecordLength = 50

	// defaultBufferSize is the per-language record cap.
	defaultBufferSize = 100_000

	// maxLineSize bounds a single corpus line.
	maxLineSize = 1 << 20
)

// ErrEmptyCorpus is returned when a configured language has no usable records.
var ErrEmptyCorpus = errors.New("empty corpus")

// urlPattern matches raw links that make a record unusable as a prompt.
var urlPattern = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)

// BufferedCorpus keeps a fixed in-memory buffer of records per language.
type BufferedCorpus struct {
	records map[string][]string // records maps language to its buffered texts
	rng     *rand.Rand          // rng picks records
	mu      sync.Mutex          // mu guards rng
}

// NewBufferedCorpus builds a corpus from preloaded records, filtering each
// through the usability rules. Every language in records must keep at
// least one record.
func NewBufferedCorpus(records map[string][]string, rng *rand.Rand) (*BufferedCorpus, error) {
	c := &BufferedCorpus{
		records: make(map[string][]string, len(records)),
		rng:     rng,
	}

	for lang, texts := range records {
		kept := make([]string, 0, len(texts))

		for _, text := range texts {
			if usable(text) {
				kept = append(kept, strings.TrimSpace(text))
			}
		}

		if len(kept) == 0 {
			return nil, fmt.Errorf("%w: language %s", ErrEmptyCorpus, lang)
		}

		c.records[lang] = kept
	}

	return c, nil
}

// LoadDir reads <dir>/<lang>.txt for every language, one record per line,
// keeping at most bufferSize usable records each.
func LoadDir(dir string, languages []string, bufferSize int, rng *rand.Rand) (*BufferedCorpus, error) {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	records := make(map[string][]string, len(languages))

	for _, lang := range languages {
		texts, err := readRecords(filepath.Join(dir, lang+".txt"), bufferSize)
		if err != nil {
			return nil, fmt.Errorf("load %s corpus:\n%w", lang, err)
		}

		logger.Info("corpus loaded", "language", lang, "records", len(texts))
		records[lang] = texts
	}

	return NewBufferedCorpus(records, rng)
}

// readRecords reads up to limit usable lines from a file.
func readRecords(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var out []string

	for scanner.Scan() && len(out) < limit {
		line := scanner.Text()
		if usable(line) {
			out = append(out, strings.TrimSpace(line))
		}
	}

	return out, scanner.Err()
}

// RandomRecord returns a uniformly chosen record for the language.
func (c *BufferedCorpus) RandomRecord(language string) (string, error) {
	texts := c.records[language]
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: language %s", ErrEmptyCorpus, language)
	}

	c.mu.Lock()
	i := c.rng.Intn(len(texts))
	c.mu.Unlock()

	return texts[i], nil
}

// Size returns the number of buffered records for a language.
func (c *BufferedCorpus) Size(language string) int {
	return len(c.records[language])
}

// usable reports whether a record is long enough and free of raw links.
func usable(text string) bool {
	trimmed := strings.TrimSpace(text)

	return len(trimmed) > minRecordLength && !urlPattern.MatchString(trimmed)
}
