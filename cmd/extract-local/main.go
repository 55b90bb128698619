// extract-local runs the pipeline against a recorded trigger event from a
// workstation, with the same configuration surface as the deployed binary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"

	"github.com/dfcoelho/cri-extractor/internal/bootstrap"
	"github.com/dfcoelho/cri-extractor/internal/common"
)

func main() {
	_ = godotenv.Load()

	eventPath := flag.String("event", "mock_event.json", "path to a recorded S3 event JSON")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run deadline")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := run(*eventPath, *timeout, logger); err != nil {
		logger.Error("extract-local.failed", "error", err)
		os.Exit(1)
	}
}

func run(eventPath string, timeout time.Duration, logger *slog.Logger) error {
	data, err := os.ReadFile(eventPath)
	if err != nil {
		return fmt.Errorf("read event file: %w", err)
	}
	var event events.S3Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode event file: %w", err)
	}
	if len(event.Records) == 0 {
		return fmt.Errorf("event file has no records")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg := common.LoadConfig()
	processor, err := bootstrap.NewProcessor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	record := event.Records[0]
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return fmt.Errorf("unescape object key: %w", err)
	}

	result, err := processor.ProcessObject(ctx, record.S3.Bucket.Name, key)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
