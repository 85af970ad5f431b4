package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaAdapter streams chat completions from a local Ollama server using
// its native /api/chat endpoint. Text-only: attachments are ignored.
type OllamaAdapter struct {
	baseURL string
	client  *http.Client
}

func NewOllamaAdapter(baseURL string) *OllamaAdapter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (a *OllamaAdapter) Name() string { return "Ollama" }

func (a *OllamaAdapter) Capabilities() Capabilities {
	return Capabilities{Streaming: true}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (a *OllamaAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		payload, err := json.Marshal(ollamaChatRequest{
			Model:    req.Model.WireCode,
			Messages: []ollamaMessage{{Role: "user", Content: req.Prompt}},
			Stream:   true,
		})
		if err != nil {
			return fmt.Errorf("ollama: encode request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("ollama: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("ollama: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("ollama: %s: %s", resp.Status, strings.TrimSpace(string(body)))
		}

		// Cumulative accumulation: every EventText carries the full
		// text-so-far, which is what the panel renders each step.
		var full strings.Builder
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				return fmt.Errorf("ollama: decode chunk: %w", err)
			}
			if chunk.Error != "" {
				return fmt.Errorf("ollama: %s", chunk.Error)
			}
			if chunk.Message.Content != "" {
				full.WriteString(chunk.Message.Content)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case events <- Event{Type: EventText, Text: full.String()}:
				}
			}
			if chunk.Done {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("ollama: read stream: %w", err)
		}

		events <- Event{Type: EventDone, Text: full.String()}
		return nil
	}), nil
}
