// Package ai streams answers from an OpenAI-compatible chat completions
// endpoint.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
)

const systemPrompt = "You are a concise assistant inside an application launcher. " +
	"Answer in a few short sentences of plain text."

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("ai: no API key configured")

// Streamer sends prompts to a chat completions API and yields the answer
// as it arrives.
type Streamer struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewStreamer creates a streamer. The HTTP client has no overall timeout;
// callers bound a stream with its context.
func NewStreamer(baseURL, apiKey, model string, maxTokens int, temperature float64) *Streamer {
	return &Streamer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{},
	}
}

// Enabled reports whether the streamer can send requests.
func (s *Streamer) Enabled() bool {
	return s != nil && s.baseURL != "" && s.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// Stream asks prompt and yields answer fragments in order. Iteration stops
// at the first error, which is yielded with an empty fragment. Cancelling
// ctx ends the stream with ctx's error.
func (s *Streamer) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.Enabled() {
			yield("", ErrDisabled)
			return
		}

		resp, err := s.open(ctx, prompt)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return
			}

			var c chunk
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				yield("", fmt.Errorf("failed to parse stream chunk: %w", err))
				return
			}
			if c.Error != nil {
				yield("", fmt.Errorf("API error: %s", c.Error.Message))
				return
			}
			for _, choice := range c.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if !yield(choice.Delta.Content, nil) {
					return
				}
			}
		}
		if err := ctx.Err(); err != nil {
			yield("", err)
			return
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

func (s *Streamer) open(ctx context.Context, prompt string) (*http.Response, error) {
	data, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// Collect drains a stream into one string.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for frag, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}
