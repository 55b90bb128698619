// extractord is the Lambda entrypoint. It is triggered by object-created
// events and runs the extraction pipeline on the uploaded document.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/dfcoelho/cri-extractor/internal/bootstrap"
	"github.com/dfcoelho/cri-extractor/internal/common"
	"github.com/dfcoelho/cri-extractor/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	processor, err := bootstrap.NewProcessor(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("extractord.bootstrap_failed", "error", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, event events.S3Event) (pipeline.Result, error) {
		if len(event.Records) == 0 {
			return pipeline.Result{}, fmt.Errorf("empty event: no records")
		}
		record := event.Records[0]
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return pipeline.Result{}, fmt.Errorf("unescape object key %q: %w", record.S3.Object.Key, err)
		}
		return processor.ProcessObject(ctx, bucket, key)
	})
}
