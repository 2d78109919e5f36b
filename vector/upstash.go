package vector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Upstash is an Index backed by the Upstash Vector REST API. The service
// embeds document text server-side, so upserts and queries carry plain text.
type Upstash struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Index = (*Upstash)(nil)

// NewUpstash creates an index client for the given REST endpoint and token.
func NewUpstash(baseURL, token string) *Upstash {
	return &Upstash{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type upsertPayload struct {
	ID       string         `json:"id"`
	Data     string         `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type queryPayload struct {
	Data            string `json:"data"`
	TopK            int    `json:"topK"`
	IncludeMetadata bool   `json:"includeMetadata"`
	IncludeData     bool   `json:"includeData"`
}

type matchPayload struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Data     string         `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// envelope wraps every Upstash response body.
type envelope[T any] struct {
	Result T      `json:"result"`
	Error  string `json:"error"`
}

// Upsert writes documents into the index. Documents without an ID get a
// time-ordered one assigned.
func (u *Upstash) Upsert(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]upsertPayload, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			uid, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to assign document id: %w", err)
			}
			id = uid.String()
		}
		payload[i] = upsertPayload{
			ID:       id,
			Data:     doc.Data,
			Metadata: doc.Metadata,
		}
	}

	var resp envelope[json.RawMessage]
	if err := u.do(ctx, "/upsert-data", payload, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("upstash upsert: %s", resp.Error)
	}
	return nil
}

// Query runs a similarity search over the index and returns up to topK
// matches, best first.
func (u *Upstash) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	var resp envelope[[]matchPayload]
	err := u.do(ctx, "/query-data", queryPayload{
		Data:            text,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeData:     true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("upstash query: %s", resp.Error)
	}

	matches := make([]Match, len(resp.Result))
	for i, m := range resp.Result {
		matches[i] = Match{
			ID:       m.ID,
			Score:    m.Score,
			Data:     m.Data,
			Metadata: m.Metadata,
		}
	}
	return matches, nil
}

// IsReady reports whether the index answers its info endpoint.
func (u *Upstash) IsReady(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/info", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (u *Upstash) do(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstash %s -> http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return err
		}
	}
	return nil
}
