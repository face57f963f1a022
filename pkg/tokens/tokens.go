// Package tokens estimates the LLM token cost of text.
//
// Counts are budget estimates. They are monotone in text length and
// roughly proportional to it, but callers must not treat them as exact.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding names accepted by New.
const (
	CL100K    = "cl100k_base"
	Heuristic = "heuristic"
)

// Counter estimates the number of tokens in a string.
type Counter interface {
	Count(text string) int
	Name() string
}

// CharsPerToken is the divisor of the fallback estimate.
const CharsPerToken = 4

type heuristic struct{}

// NewHeuristic returns the ceil(runes/4) estimator.
func NewHeuristic() Counter { return heuristic{} }

func (heuristic) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

func (heuristic) Name() string { return Heuristic }

// bpe wraps a tiktoken encoding. The encoder's regexp state is not
// documented as goroutine-safe, so calls are serialized.
type bpe struct {
	mu   sync.Mutex
	enc  *tiktoken.Tiktoken
	name string
}

func (b *bpe) Count(text string) int {
	if text == "" {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.enc.Encode(text, nil, nil))
}

func (b *bpe) Name() string { return b.name }

var loaderOnce sync.Once

// New returns the counter for encoding. The BPE ranks are embedded, so no
// network access happens. If the encoding cannot be loaded the heuristic
// counter is returned together with the load error, so callers can log
// the downgrade and keep going.
func New(encoding string) (Counter, error) {
	if encoding == "" || encoding == Heuristic {
		return heuristic{}, nil
	}

	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return heuristic{}, errors.Wrapf(err, "loading tokenizer %q", encoding)
	}
	return &bpe{enc: enc, name: encoding}, nil
}
