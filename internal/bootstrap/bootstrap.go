// Package bootstrap wires the concrete backends into a ready Processor.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dfcoelho/cri-extractor/internal/common"
	"github.com/dfcoelho/cri-extractor/internal/document"
	"github.com/dfcoelho/cri-extractor/internal/llm"
	"github.com/dfcoelho/cri-extractor/internal/llm/bedrock"
	"github.com/dfcoelho/cri-extractor/internal/llm/openai"
	"github.com/dfcoelho/cri-extractor/internal/pipeline"
	"github.com/dfcoelho/cri-extractor/internal/storage"
	"github.com/dfcoelho/cri-extractor/internal/validation"
)

// NewProcessor assembles the extraction pipeline from configuration. The
// model backend is selected by MODEL_PROVIDER; storage is always S3.
func NewProcessor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Model.Region))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}

	store := storage.NewS3Store(s3.NewFromConfig(awsCfg), logger)

	var invoker llm.Invoker
	switch cfg.Model.Provider {
	case "openai":
		invoker = openai.NewClient(openai.Config{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.ModelID,
		}, logger)
	case "bedrock", "":
		invoker = bedrock.NewFromConfig(awsCfg, bedrock.Config{ModelID: cfg.Model.ModelID}, logger)
	default:
		return nil, fmt.Errorf("bootstrap: unknown model provider %q", cfg.Model.Provider)
	}

	gateway := llm.NewGateway(invoker, llm.RetryPolicy{
		MaxAttempts: cfg.Model.MaxRetries,
		BaseDelay:   cfg.Model.RetryBase,
		Exponential: cfg.Model.Exponential,
	}, logger)

	engine := validation.NewEngine(store, cfg.Validation.CVMBucket, cfg.Validation.CVMKey, logger)
	extractor := document.NewPDFExtractor(logger)

	return pipeline.NewProcessor(store, extractor, gateway, engine, cfg, logger), nil
}
