// Package llm talks to the external language-model service. The tool uses
// it for exactly one exchange: pulling the failing constraint name out of
// the raw migration error text.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/config"
)

const extractionInstruction = `You will receive a MySQL migration error message. Extract the name of the failing foreign key constraint and return ONLY that name, nothing else.

The constraint name starts with "FK_", contains no spaces, and is delimited by quotes or backticks in the error text. Do not add explanations, punctuation, or formatting.`

// Extractor performs the constraint-name extraction exchange.
type Extractor struct {
	client *openai.Client
	model  string
}

// NewExtractor builds an Extractor from the LLM configuration.
func NewExtractor(cfg config.LLM) *Extractor {
	return &Extractor{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

// ExtractConstraintName sends the error text and returns the trimmed model
// response. The result is NOT validated here — it is untrusted input, and
// the inspector escapes it before it ever reaches SQL text.
func (e *Extractor) ExtractConstraintName(ctx context.Context, errorText string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: errorText,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("constraint extraction request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("constraint extraction: empty response")
	}

	name := strings.TrimSpace(resp.Choices[0].Message.Content)
	name = strings.Trim(name, "`'\"")
	return name, nil
}
