package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dexterslab/plural-backend/internal/types"
)

const (
	defaultChatModel  = "gemini-2.0-flash"
	defaultEmbedModel = "text-embedding-004"

	embedTaskType = "RETRIEVAL_DOCUMENT"
)

// Client is a Gemini API client for chat generation and text embeddings.
type Client struct {
	genai      *genai.Client
	chatModel  string
	embedModel string
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey, chatModel, embedModel string) (*Client, error) {
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		genai:      client,
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

func roleToGenai(role types.MessageRole) genai.Role {
	if role == types.RoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func contentsFromTurns(turns []types.DialogueTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, len(turn.Blocks))
		for _, block := range turn.Blocks {
			switch block.Kind {
			case types.BlockInlineImage:
				parts = append(parts, genai.NewPartFromBytes(block.Data, block.MIMEType))
			default:
				parts = append(parts, genai.NewPartFromText(block.Text))
			}
		}
		contents = append(contents, genai.NewContentFromParts(parts, roleToGenai(turn.Role)))
	}
	return contents
}

// Generate sends the dialogue to the chat model and returns the response text.
func (c *Client) Generate(ctx context.Context, turns []types.DialogueTurn) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.chatModel, contentsFromTurns(turns), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate content: empty response")
	}
	return text, nil
}

// GenerateJSON is like Generate but asks the model for a JSON response.
func (c *Client) GenerateJSON(ctx context.Context, turns []types.DialogueTurn) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.chatModel, contentsFromTurns(turns), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate json content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate json content: empty response")
	}
	return text, nil
}

// Embed returns a fixed-length embedding vector for the given text.
// Empty or whitespace-only input is an error.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: empty input")
	}

	resp, err := c.genai.Models.EmbedContent(ctx, c.embedModel, genai.Text(text), &genai.EmbedContentConfig{
		TaskType: embedTaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed content: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}
