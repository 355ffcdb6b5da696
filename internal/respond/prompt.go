// internal/respond/prompt.go
package respond

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/metareply/internal/types"
)

// sentiment-conditioned instruction suffixes appended to the system prompt
const (
	suffixPositive = "Respond with a very enthusiastic and thankful tone, acknowledging the compliment. Keep it concise and friendly."
	suffixNegative = "Respond with an apologetic and helpful tone, asking for more details about the issue so we can improve. Keep it concise and professional."
)

// PromptBuilder assembles token-budgeted prompts for the response model.
type PromptBuilder struct {
	systemPrompt string
	tokenizer    *tiktoken.Tiktoken
	maxTokens    int
}

// NewPromptBuilder loads the system prompt from promptPath (optional; empty
// path means no prefix) and prepares a tokenizer for the model. maxTokens
// caps the assembled prompt; long conversations are trimmed oldest-first.
func NewPromptBuilder(promptPath, model string, maxTokens int) (*PromptBuilder, error) {
	var systemPrompt string
	if promptPath != "" {
		data, err := os.ReadFile(promptPath)
		if err != nil {
			return nil, fmt.Errorf("read system prompt: %w", err)
		}
		systemPrompt = strings.TrimSpace(string(data))
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback for models the tiktoken tables don't know (e.g. Gemini).
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}

	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &PromptBuilder{
		systemPrompt: systemPrompt,
		tokenizer:    enc,
		maxTokens:    maxTokens,
	}, nil
}

func (b *PromptBuilder) countTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Build assembles system prompt + sentiment instruction + the user's
// combined conversation text.
func (b *PromptBuilder) Build(sentiment types.Sentiment, combinedText string) string {
	suffix := suffixNegative
	if sentiment == types.SentimentPositive {
		suffix = suffixPositive
	}

	var sb strings.Builder
	if b.systemPrompt != "" {
		sb.WriteString(b.systemPrompt)
		sb.WriteString(" ")
	}
	sb.WriteString(suffix)
	sb.WriteString(" Message/Conversation input from user: ")

	budget := b.maxTokens - b.countTokens(sb.String())
	sb.WriteString(b.trimToBudget(combinedText, budget))
	sb.WriteString(" ")
	return sb.String()
}

// trimToBudget keeps the most recent part of the text when it exceeds the
// token budget.
func (b *PromptBuilder) trimToBudget(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	tokens := b.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return b.tokenizer.Decode(tokens[len(tokens)-budget:])
}
