package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"aigate/internal/config"
	"aigate/internal/domain"
)

// BedrockClient is a client for AWS Bedrock using the Converse API.
// IAM credentials only; Bearer token auth is not supported.
type BedrockClient struct {
	region        string
	runtimeClient *bedrockruntime.Client
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(cfg config.BedrockConfig, settings ...ConnectionSettings) (*BedrockClient, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("no credentials provided: need AccessKeyID + SecretAccessKey")
	}

	connSettings := DefaultConnectionSettings()
	if len(settings) > 0 {
		connSettings = settings[0]
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithHTTPClient(BuildHTTPClient(connSettings)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockClient{
		region:        region,
		runtimeClient: bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

// Provider returns the provider type
func (c *BedrockClient) Provider() domain.Provider {
	return domain.ProviderBedrock
}

// Generate performs a non-streaming Converse call
func (c *BedrockClient) Generate(ctx context.Context, req *domain.Request) (string, error) {
	out, err := c.runtimeClient.Converse(ctx, c.buildInput(req))
	if err != nil {
		return "", err
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", domain.ErrEmptyResponse
	}

	text, ok := msg.Value.Content[0].(*types.ContentBlockMemberText)
	if !ok || text.Value == "" {
		return "", domain.ErrEmptyResponse
	}

	return text.Value, nil
}

// buildInput converts a request into Converse input. System messages go into
// the dedicated system field; the rest keep their roles.
func (c *BedrockClient) buildInput(req *domain.Request) *bedrockruntime.ConverseInput {
	var system []types.SystemContentBlock
	var messages []types.Message

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.RoleSystem:
			system = append(system, &types.SystemContentBlockMemberText{Value: msg.Content})
		case domain.RoleAssistant:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})
		default:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: msg.Content}},
			})
		}
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.Model),
		Messages: messages,
		System:   system,
	}

	if req.Temperature != nil || req.MaxTokens != nil {
		inference := &types.InferenceConfiguration{}
		if req.Temperature != nil {
			inference.Temperature = req.Temperature
		}
		if req.MaxTokens != nil {
			inference.MaxTokens = aws.Int32(*req.MaxTokens)
		}
		input.InferenceConfig = inference
	}

	return input
}
