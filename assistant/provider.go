package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	maxOutputTokens = 300
	maxErrorBody    = 512
)

// ErrEmptyResponse means the provider answered but produced no text.
var ErrEmptyResponse = errors.New("empty response from provider")

// Provider generates a reply for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// postJSON sends body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(snippet))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OpenAI calls the chat completions API.
type OpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	body := map[string]interface{}{
		"model":      p.Model,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens": maxOutputTokens,
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	if err := postJSON(ctx, defaultClient(p.Client), base+"/v1/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := out.Choices[0].Message.Content
	if text == "" {
		text = out.Choices[0].Text
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Google calls the Generative Language generateContent API.
type Google struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func (p *Google) Name() string { return "google" }

func (p *Google) Generate(ctx context.Context, prompt string) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, url.PathEscape(p.Model), url.QueryEscape(p.APIKey))
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]int{"maxOutputTokens": maxOutputTokens},
	}
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := postJSON(ctx, defaultClient(p.Client), endpoint, nil, body, &out); err != nil {
		return "", err
	}
	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, part := range out.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// HuggingFace calls the hosted inference API. Models answer either with a
// list of generations or a single object.
type HuggingFace struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func (p *HuggingFace) Name() string { return "huggingface" }

func (p *HuggingFace) Generate(ctx context.Context, prompt string) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://api-inference.huggingface.co"
	}
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	var out json.RawMessage
	if err := postJSON(ctx, defaultClient(p.Client), base+"/models/"+p.Model, headers, map[string]string{"inputs": prompt}, &out); err != nil {
		return "", err
	}

	type generation struct {
		GeneratedText string `json:"generated_text"`
		Error         string `json:"error"`
	}
	var list []generation
	if err := json.Unmarshal(out, &list); err == nil && len(list) > 0 && list[0].GeneratedText != "" {
		return list[0].GeneratedText, nil
	}
	var single generation
	if err := json.Unmarshal(out, &single); err == nil {
		if single.GeneratedText != "" {
			return single.GeneratedText, nil
		}
		if single.Error != "" {
			return "", fmt.Errorf("huggingface: %s", single.Error)
		}
	}
	var text string
	if err := json.Unmarshal(out, &text); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	return "", ErrEmptyResponse
}
