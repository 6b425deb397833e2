// internal/guide/window.go
package guide

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// ContextWindow chooses which prior messages are resent with a request.
// Implementations return a suffix of history and must not modify it.
type ContextWindow interface {
	Select(history []Message) []Message
}

// Unbounded resends the whole transcript every time. Prompts grow without
// limit as the conversation continues.
type Unbounded struct{}

func (Unbounded) Select(history []Message) []Message {
	return history
}

// LastN resends at most the N most recent messages.
type LastN struct {
	N int
}

func (w LastN) Select(history []Message) []Message {
	if w.N <= 0 {
		return nil
	}
	if len(history) <= w.N {
		return history
	}
	return history[len(history)-w.N:]
}

// TokenCounter measures text in provider tokens.
type TokenCounter interface {
	Count(text string) int
}

// TokenBudget resends the longest suffix of the transcript whose rendered
// lines fit in Budget tokens.
type TokenBudget struct {
	Budget  int
	Counter TokenCounter
}

func (w TokenBudget) Select(history []Message) []Message {
	counter := w.Counter
	if counter == nil {
		counter = ApproxCounter{}
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		cost := counter.Count(m.Role.Label() + ": " + m.Content + "\n")
		if used+cost > w.Budget {
			break
		}
		used += cost
		start = i
	}
	return history[start:]
}

// TiktokenCounter counts tokens with a BPE encoding such as cl100k_base.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads encoding. The first load may fetch the BPE ranks
// over the network unless TIKTOKEN_CACHE_DIR already holds them.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// ApproxCounter estimates one token per four characters. It stands in when no
// encoding can be loaded.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
