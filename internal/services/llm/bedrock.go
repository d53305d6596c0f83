package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// converser is the subset of the Bedrock runtime client used here.
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Bedrock routes Claude models through AWS Bedrock's Converse API. Web
// search is not available there, so requests run without tools.
type Bedrock struct {
	client converser
}

// NewBedrock loads the default AWS credential chain for region.
func NewBedrock(ctx context.Context, region string) (*Bedrock, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Bedrock{client: bedrockruntime.NewFromConfig(awsCfg)}, nil
}

// Name implements Backend.
func (b *Bedrock) Name() string { return ProviderBedrock }

// Generate implements Backend.
func (b *Bedrock) Generate(ctx context.Context, req Request) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(bedrockModelID(req.Model)),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
		}},
	}
	if req.MaxOutputTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxOutputTokens))}
	}
	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return "", err
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock converse: response carried no message")
	}
	blocks := make([]string, 0, len(msg.Value.Content))
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok && strings.TrimSpace(text.Value) != "" {
			blocks = append(blocks, strings.TrimSpace(text.Value))
		}
	}
	if len(blocks) == 0 {
		return "", errors.New("bedrock converse: no text content")
	}
	return strings.Join(blocks, "\n\n"), nil
}

// bedrockModelID maps a catalog name such as "claude-3-5-haiku-20241022"
// to a Bedrock model id. Names that already look like Bedrock ids pass through.
func bedrockModelID(model string) string {
	if strings.Contains(model, ".") || strings.Contains(model, ":") {
		return model
	}
	return "anthropic." + model + "-v1:0"
}
