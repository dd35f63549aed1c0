// Package budget bounds how much conversation history reaches the model.
// History is first cut to a fixed message window, then trimmed oldest-first
// until an estimated token budget fits.
//
// Token counts are estimated per character: about three characters per token
// for Cyrillic-heavy chat text. Backends tokenise differently, so the
// estimate errs high.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 3

	// messageOverhead approximates the per-message framing tokens most chat
	// APIs add.
	messageOverhead = 4

	// DefaultMaxContextTokens is the default input budget in tokens.
	DefaultMaxContextTokens = 6000

	// DefaultHistoryWindow is the number of prior messages the agent sees.
	DefaultHistoryWindow = 5
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	chars := utf8.RuneCountInString(s)
	n := chars / charsPerToken
	if n == 0 && chars > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated token count of msgs including
// per-message overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Window returns the last n messages of history. n <= 0 returns none.
func Window(history []*schema.Message, n int) []*schema.Message {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

// TrimHistory drops the oldest history messages until fixed plus history
// fits within maxTokens. fixed (system prompt, current user message) is
// never trimmed; if fixed alone exceeds the budget the result is empty.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	budget := maxTokens - EstimateMessages(fixed)
	for len(history) > 0 && EstimateMessages(history) > budget {
		history = history[1:]
	}
	return history
}
