package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HostModelAdapter talks to the editor host's model bridge: a local HTTP
// endpoint that resolves a family selector to candidate model handles and
// streams text parts from one of them.
type HostModelAdapter struct {
	endpoint string
	selector func() string
	client   *http.Client
}

// NewHostModelAdapter builds the host adapter. selector is read per request
// so configuration changes apply without a restart.
func NewHostModelAdapter(endpoint string, selector func() string) *HostModelAdapter {
	if selector == nil {
		selector = func() string { return "" }
	}
	return &HostModelAdapter{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		selector: selector,
		client:   &http.Client{},
	}
}

func (a *HostModelAdapter) Name() string { return "Host model" }

func (a *HostModelAdapter) Capabilities() Capabilities {
	return Capabilities{Streaming: true}
}

type hostSelectRequest struct {
	Selector string `json:"selector"`
}

type hostSelectResponse struct {
	Models []hostModelHandle `json:"models"`
}

type hostModelHandle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type hostChatRequest struct {
	Prompt string `json:"prompt"`
}

type hostChatChunk struct {
	Part  string `json:"part"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (a *HostModelAdapter) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		selector := strings.TrimSpace(a.selector())
		if selector == "" {
			return fmt.Errorf("%w: host model selector is not set", ErrMissingConfiguration)
		}
		if a.endpoint == "" {
			return fmt.Errorf("%w: host bridge endpoint is not set", ErrMissingConfiguration)
		}

		handle, err := a.selectModel(ctx, selector)
		if err != nil {
			return err
		}
		return a.streamChat(ctx, handle, req.Prompt, events)
	}), nil
}

func (a *HostModelAdapter) selectModel(ctx context.Context, selector string) (hostModelHandle, error) {
	payload, err := json.Marshal(hostSelectRequest{Selector: selector})
	if err != nil {
		return hostModelHandle{}, fmt.Errorf("host: encode selector: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/v1/models/select", bytes.NewReader(payload))
	if err != nil {
		return hostModelHandle{}, fmt.Errorf("host: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return hostModelHandle{}, fmt.Errorf("host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return hostModelHandle{}, fmt.Errorf("host: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var selected hostSelectResponse
	if err := json.NewDecoder(resp.Body).Decode(&selected); err != nil {
		return hostModelHandle{}, fmt.Errorf("host: decode selection: %w", err)
	}
	if len(selected.Models) == 0 {
		return hostModelHandle{}, fmt.Errorf("%w: selector %q", ErrNoMatchingModel, selector)
	}
	// Multiple matches are resolved deterministically: first wins.
	return selected.Models[0], nil
}

func (a *HostModelAdapter) streamChat(ctx context.Context, handle hostModelHandle, prompt string, events chan<- Event) error {
	payload, err := json.Marshal(hostChatRequest{Prompt: prompt})
	if err != nil {
		return fmt.Errorf("host: encode chat: %w", err)
	}

	chatURL := a.endpoint + "/v1/models/" + url.PathEscape(handle.ID) + "/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("host: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk hostChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("host: decode chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("host: %s", chunk.Error)
		}
		if chunk.Part != "" {
			full.WriteString(chunk.Part)
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
		return fmt.Errorf("host: read stream: %w", err)
	}

	events <- Event{Type: EventDone, Text: full.String()}
	return nil
}
