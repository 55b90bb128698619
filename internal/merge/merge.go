// Package merge consolidates a fresh extraction with the most recent prior
// artifact from the same folder lineage.
package merge

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/dfcoelho/cri-extractor/internal/llm"
	"github.com/dfcoelho/cri-extractor/internal/storage"
)

// Outcome carries the consolidated record plus enough provenance for the
// artifact's merge_info block.
type Outcome struct {
	Record   map[string]any
	PriorKey string
	Failed   bool
}

// Stage performs the incremental merge. Every failure mode degrades rather
// than aborts: a new extraction must never be lost because consolidation
// with an older one went wrong.
type Stage struct {
	store     storage.ObjectStore
	gateway   *llm.Gateway
	maxTokens int32
	logger    *slog.Logger
}

func NewStage(store storage.ObjectStore, gw *llm.Gateway, maxTokens int32, logger *slog.Logger) *Stage {
	return &Stage{store: store, gateway: gw, maxTokens: maxTokens, logger: logger}
}

// Execute finds the most recent prior artifact under <folder>/output/ and
// consolidates the new record with it. With no usable prior the new record
// passes through untouched. When the model's merge answer is unusable the
// new record is kept and the outcome is flagged as a failed merge.
func (s *Stage) Execute(ctx context.Context, bucket, folder string, record map[string]any) Outcome {
	priorKey := s.findLatest(ctx, bucket, folder)
	if priorKey == "" {
		return Outcome{Record: record}
	}

	priorData, err := s.downloadPrior(ctx, bucket, priorKey)
	if err != nil {
		s.logger.Warn("merge.prior.fetch_failed",
			"prior_key", priorKey,
			"error", err)
		return Outcome{Record: record}
	}
	if priorData == nil {
		return Outcome{Record: record}
	}

	// The prior validation block describes the prior run, not the data.
	delete(priorData, "validacao")

	system, user := llm.MergePrompts(priorData, record)
	out, err := s.gateway.Invoke(ctx, llm.InvokeRequest{
		System:    system,
		User:      user,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		s.logger.Warn("merge.invoke.failed",
			"prior_key", priorKey,
			"error", err)
		return Outcome{Record: record, PriorKey: priorKey, Failed: true}
	}

	mergedRaw, err := llm.ParseObject(out)
	if err != nil {
		s.logger.Warn("merge.parse_failed",
			"prior_key", priorKey,
			"error", err)
		return Outcome{Record: record, PriorKey: priorKey, Failed: true}
	}

	merged := EnforcePrecedence(priorData, record, mergedRaw)
	s.logger.Info("merge.ok", "prior_key", priorKey)
	return Outcome{Record: merged, PriorKey: priorKey}
}

// findLatest returns the key of the newest non-empty JSON artifact under
// the lineage's output prefix, or "" when none exists. Listing failures
// degrade to no-prior.
func (s *Stage) findLatest(ctx context.Context, bucket, folder string) string {
	prefix := path.Join(folder, "output") + "/"
	objects, err := s.store.List(ctx, bucket, prefix)
	if err != nil {
		s.logger.Warn("merge.list_failed",
			"prefix", prefix,
			"error", err)
		return ""
	}

	var latest storage.ObjectInfo
	var found bool
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, ".json") || obj.Size == 0 {
			continue
		}
		if !found || obj.LastModified.After(latest.LastModified) {
			latest = obj
			found = true
		}
	}
	if !found {
		return ""
	}
	return latest.Key
}

// downloadPrior fetches a prior artifact and returns its extracted-data
// block. A malformed artifact returns (nil, nil) so the caller degrades.
func (s *Stage) downloadPrior(ctx context.Context, bucket, key string) (map[string]any, error) {
	data, err := s.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	var artifact map[string]any
	if err := json.Unmarshal(data, &artifact); err != nil {
		s.logger.Warn("merge.prior.unmarshal_failed",
			"prior_key", key,
			"error", err)
		return nil, nil
	}
	extracted, ok := artifact["dados_extraidos"].(map[string]any)
	if !ok {
		s.logger.Warn("merge.prior.missing_data", "prior_key", key)
		return nil, nil
	}
	return extracted, nil
}
