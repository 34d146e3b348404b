package imagegen

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts prompt tokens with the cl100k_base encoding. When the
// encoding cannot be loaded it falls back to roughly four runes per token.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

func (t *TokenCounter) Count(text string) int {
	if t.enc == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}
