package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	defaultBedrockRegion = "us-east-1"
	defaultBedrockModel  = "anthropic.claude-3-5-haiku-20241022-v1:0"
)

// invoker is the part of the Bedrock runtime client the provider uses.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider answers with a Claude model on AWS Bedrock.
type BedrockProvider struct {
	client invoker
	model  string
}

// NewBedrockProvider loads AWS credentials from the environment or IAM role.
func NewBedrockProvider(ctx context.Context, region, model string) (*BedrockProvider, error) {
	if region == "" {
		region = defaultBedrockRegion
	}
	if model == "" {
		model = defaultBedrockModel
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg), model: model}, nil
}

// Name implements Provider.
func (p *BedrockProvider) Name() string { return SourceBedrock }

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements Provider.
func (p *BedrockProvider) Complete(ctx context.Context, req Request) (Completion, error) {
	history := turns(req.History)
	if len(history) == 0 {
		return Completion{}, fmt.Errorf("bedrock: no user message")
	}
	msgs := make([]bedrockMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, bedrockMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		System:           systemPrompt(req),
		Messages:         msgs,
		MaxTokens:        256,
		Temperature:      0.7,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to call Bedrock API: %w", err)
	}

	var out bedrockResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return Completion{}, fmt.Errorf("failed to decode Bedrock response: %w", err)
	}
	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return Completion{Reply: text.String(), Source: SourceBedrock}, nil
}
