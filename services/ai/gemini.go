package aisvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/material"
)

// GeminiGenerator calls Google's generative models through the Gemini API.
// Clients are created lazily, one per API key.
type GeminiGenerator struct {
	logger core.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var _ material.Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(logger core.Logger) *GeminiGenerator {
	return &GeminiGenerator{
		logger:  logger,
		clients: make(map[string]*genai.Client),
	}
}

func (g *GeminiGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	g.clients[apiKey] = c
	return c, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req material.Request) (material.Reply, error) {
	client, err := g.client(ctx, req.APIKey)
	if err != nil {
		return material.Reply{}, err
	}

	resp, err := client.Models.GenerateContent(
		ctx,
		req.Model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		generateConfig(req),
	)
	if err != nil {
		return material.Reply{}, err
	}
	g.logger.Debug("gemini response", "model", req.Model, "candidates", len(resp.Candidates))
	return classify(resp), nil
}

func generateConfig(req material.Request) *genai.GenerateContentConfig {
	settings := make([]*genai.SafetySetting, 0, len(req.Safety))
	for _, s := range req.Safety {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Params.Temperature),
		TopP:            genai.Ptr(req.Params.TopP),
		TopK:            genai.Ptr(req.Params.TopK),
		MaxOutputTokens: req.Params.MaxOutputTokens,
		SafetySettings:  settings,
	}
}

// classify reduces a response to a material.Reply, checking in order:
// prompt feedback block, single-candidate parts, aggregate text, then any candidate's parts.
func classify(resp *genai.GenerateContentResponse) material.Reply {
	if resp == nil {
		return material.Reply{Kind: material.ReplyEmpty}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		ratings := make([]string, 0, len(fb.SafetyRatings))
		for _, r := range fb.SafetyRatings {
			if r != nil {
				ratings = append(ratings, fmt.Sprintf("%s: %s", r.Category, r.Probability))
			}
		}
		return material.Reply{Kind: material.ReplyBlocked, BlockReason: string(fb.BlockReason), SafetyRatings: ratings}
	}

	if len(resp.Candidates) == 1 {
		if parts := textParts(resp.Candidates[0]); len(parts) > 0 {
			return material.Reply{Kind: material.ReplyParts, Parts: parts}
		}
	}

	if text := resp.Text(); text != "" {
		return material.Reply{Kind: material.ReplyText, Text: text}
	}

	// only the first candidate counts, later ones are alternatives
	if len(resp.Candidates) > 0 {
		if parts := textParts(resp.Candidates[0]); len(parts) > 0 {
			return material.Reply{Kind: material.ReplyCandidate, Parts: parts}
		}
	}
	return material.Reply{Kind: material.ReplyEmpty}
}

func textParts(c *genai.Candidate) []string {
	if c == nil || c.Content == nil {
		return nil
	}
	var parts []string
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			parts = append(parts, p.Text)
		}
	}
	return parts
}
