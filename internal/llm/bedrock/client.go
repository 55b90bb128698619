// Package bedrock implements the model invoker on top of the Bedrock
// Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/dfcoelho/cri-extractor/internal/llm"
)

// transientCodes are the provider error codes worth retrying.
var transientCodes = map[string]struct{}{
	"ThrottlingException":         {},
	"ModelErrorException":         {},
	"InternalServerException":     {},
	"ServiceUnavailableException": {},
}

type Config struct {
	ModelID string
}

// Client calls a single Bedrock model and keeps running token totals for
// the lifetime of the process.
type Client struct {
	api     *bedrockruntime.Client
	modelID string
	logger  *slog.Logger

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

func NewFromConfig(awsCfg aws.Config, cfg Config, logger *slog.Logger) *Client {
	return &Client{
		api:     bedrockruntime.NewFromConfig(awsCfg),
		modelID: cfg.ModelID,
		logger:  logger,
	}
}

func (c *Client) Invoke(ctx context.Context, req llm.InvokeRequest) (string, error) {
	reqID := uuid.NewString()
	start := time.Now()

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.User},
				},
			},
		},
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(req.MaxTokens),
			Temperature: aws.Float32(req.Temperature),
		},
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			if _, ok := transientCodes[apiErr.ErrorCode()]; ok {
				return "", llm.MarkTransient(fmt.Errorf("bedrock converse: %w", err))
			}
		}
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	if out.Usage != nil {
		in := int64(aws.ToInt32(out.Usage.InputTokens))
		outTok := int64(aws.ToInt32(out.Usage.OutputTokens))
		c.logger.Info("bedrock.invoke.usage",
			"req_id", reqID,
			"model_id", c.modelID,
			"input_tokens", in,
			"output_tokens", outTok,
			"total_input_tokens", c.inputTokens.Add(in),
			"total_output_tokens", c.outputTokens.Add(outTok),
			"elapsed_ms", time.Since(start).Milliseconds())
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock converse: unexpected output union member")
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String(), nil
}

// TokenTotals reports the tokens consumed so far across all invocations.
func (c *Client) TokenTotals() (input, output int64) {
	return c.inputTokens.Load(), c.outputTokens.Load()
}
