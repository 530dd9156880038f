package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/fernanda-avila/MIndCare2025/config"
)

const (
	// MockProvider names the canned reply used when nothing is configured.
	MockProvider = "mock"
	maxPromptLen = 4000
	mockEchoLen  = 200
)

// Reply is the assistant's answer and the provider that produced it.
type Reply struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Assistant tries its providers in order and returns the first answer.
type Assistant struct {
	providers []Provider
}

func New(providers ...Provider) *Assistant {
	return &Assistant{providers: providers}
}

// FromConfig builds the chain from the configured API keys: OpenAI, then
// Google, then Hugging Face.
func FromConfig(cfg *config.Config) *Assistant {
	var providers []Provider
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, &OpenAI{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
	}
	if cfg.GoogleAPIKey != "" {
		providers = append(providers, &Google{APIKey: cfg.GoogleAPIKey, Model: cfg.GoogleModel})
	}
	if cfg.HuggingFaceAPIKey != "" {
		providers = append(providers, &HuggingFace{APIKey: cfg.HuggingFaceAPIKey, Model: cfg.HuggingFaceModel})
	}
	return New(providers...)
}

// ValidatePrompt trims the prompt and rejects empty or oversized input.
func ValidatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	if utf8.RuneCountInString(prompt) > maxPromptLen {
		return "", fmt.Errorf("prompt exceeds %d characters", maxPromptLen)
	}
	return prompt, nil
}

// Reply never fails: provider errors fall through to the next provider and
// finally to a degraded message.
func (a *Assistant) Reply(ctx context.Context, prompt string) Reply {
	if len(a.providers) == 0 {
		log.Printf("assistant: no provider configured, answering with mock")
		return Reply{Text: "Mock response: " + truncateRunes(prompt, mockEchoLen), Provider: MockProvider}
	}

	var failed []string
	for _, p := range a.providers {
		text, err := p.Generate(ctx, prompt)
		if err == nil {
			return Reply{Text: text, Provider: p.Name()}
		}
		log.Printf("assistant: provider %s failed: %v", p.Name(), err)
		failed = append(failed, p.Name())
		if ctx.Err() != nil {
			break
		}
	}
	return Reply{
		Text:     fmt.Sprintf("The assistant could not generate a reply right now (%s).", strings.Join(failed, ", ")),
		Provider: "none",
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
