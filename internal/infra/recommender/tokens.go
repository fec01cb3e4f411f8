package recommender

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates how many prompt tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the model's BPE encoding. The encoding is
// loaded on first use; if it cannot be loaded, a chars/4 estimate is used.
type TiktokenCounter struct {
	model  string
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTiktokenCounter builds a counter for model.
func NewTiktokenCounter(model string, logger *slog.Logger) *TiktokenCounter {
	return &TiktokenCounter{model: model, logger: logger.With("component", "recommender.tokens")}
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(c.load)
	if c.enc == nil {
		return estimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *TiktokenCounter) load() {
	enc, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		c.logger.Warn("token encoding unavailable, estimating prompt size", "model", c.model, "error", err)
		return
	}
	c.enc = enc
}

func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}
