package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"brandpulse/internal/engine"
	"brandpulse/internal/metrics"
	"brandpulse/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	classifierSystemPrompt = "You are a strict classifier for social media interactions. " +
		"Answer with a single word: YES or NO."

	generatorSystemPrompt = "You draft replies to social media interactions on behalf of a brand. " +
		"Reply with only the message text, no quotes or commentary."
)

// Config controls the AI client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client answers natural-language conditions and drafts replies. It
// implements engine.Classifier and engine.Generator.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	cache   *expirable.LRU[string, bool]
	log     *zap.Logger
}

// NewClient creates an AI client. Classifier verdicts are cached for an
// hour keyed on prompt+content, so re-dispatch and overlapping prompts
// across workflows do not repeat calls.
func NewClient(cfg Config, log *zap.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	m := cfg.Model
	if m == "" {
		m = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   m,
		timeout: timeout,
		cache:   expirable.NewLRU[string, bool](1024, nil, time.Hour),
		log:     log,
	}
}

// Classify answers whether the prompt holds for the interaction
func (c *Client) Classify(ctx context.Context, prompt string, in *model.Interaction) (bool, error) {
	key := verdictKey(prompt, in)
	if v, ok := c.cache.Get(key); ok {
		metrics.ClassifierCacheHits.Inc()
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: classifierUserPrompt(prompt, in)},
		},
	})
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierErrors.Inc()
		return false, fmt.Errorf("classifier call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ClassifierErrors.Inc()
		return false, fmt.Errorf("classifier returned no choices")
	}

	verdict, err := ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ClassifierErrors.Inc()
		return false, err
	}
	c.cache.Add(key, verdict)
	return verdict, nil
}

// Draft generates reply text for a generate_response workflow
func (c *Client) Draft(ctx context.Context, req engine.DraftRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: draftUserPrompt(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generator returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("generator returned empty draft")
	}
	return text, nil
}

func classifierUserPrompt(prompt string, in *model.Interaction) string {
	return fmt.Sprintf("Question: %s\n\nPlatform: %s\nType: %s\nAuthor: @%s\nMessage: %s",
		prompt, in.Platform, in.Type, in.AuthorHandle, in.Content)
}

func draftUserPrompt(req engine.DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a reply to this %s message from @%s: %q",
		req.Platform, req.AuthorHandle, req.Content)
	if req.Tone != "" {
		fmt.Fprintf(&b, "\nTone: %s", req.Tone)
	}
	if req.Instructions != "" {
		fmt.Fprintf(&b, "\nInstructions: %s", req.Instructions)
	}
	return b.String()
}

// ParseVerdict interprets the classifier's answer. Anything that does
// not start with yes/no is an error rather than a silent non-match.
func ParseVerdict(answer string) (bool, error) {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.Trim(a, ".!\"' ")
	switch {
	case strings.HasPrefix(a, "yes"):
		return true, nil
	case strings.HasPrefix(a, "no"):
		return false, nil
	}
	return false, fmt.Errorf("unparseable classifier answer: %q", answer)
}

func verdictKey(prompt string, in *model.Interaction) string {
	h := sha256.Sum256([]byte(prompt + "\x00" + string(in.Platform) + "\x00" + string(in.Type) + "\x00" + in.Content))
	return hex.EncodeToString(h[:])
}
