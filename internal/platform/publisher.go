package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"brandpulse/internal/model"

	"go.uber.org/zap"
)

// Gateway talks to the platform connector service that holds the OAuth
// grants for each connected account. It implements engine.Publisher.
type Gateway struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

// NewGateway creates a publisher against the connector service
func NewGateway(baseURL, token string, log *zap.Logger) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// Reply publishes text in reply to the interaction on its platform
func (g *Gateway) Reply(ctx context.Context, in *model.Interaction, text string) error {
	return g.post(ctx, fmt.Sprintf("/%s/reply", in.Platform), map[string]interface{}{
		"externalId": in.ExternalID,
		"type":       string(in.Type),
		"text":       text,
	})
}

// DeleteComment removes the comment on the originating platform
func (g *Gateway) DeleteComment(ctx context.Context, in *model.Interaction) error {
	return g.post(ctx, fmt.Sprintf("/%s/delete-comment", in.Platform), map[string]interface{}{
		"externalId": in.ExternalID,
	})
}

// BlockAuthor blocks the interaction's author on the platform
func (g *Gateway) BlockAuthor(ctx context.Context, in *model.Interaction) error {
	return g.post(ctx, fmt.Sprintf("/%s/block", in.Platform), map[string]interface{}{
		"authorId": in.AuthorID,
	})
}

func (g *Gateway) post(ctx context.Context, path string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("platform gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("platform gateway %s returned %d: %s", path, resp.StatusCode, msg)
	}
	return nil
}
