package merge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfcoelho/cri-extractor/internal/llm"
	"github.com/dfcoelho/cri-extractor/internal/storage"
)

const testBucket = "documents"

type funcInvoker func(ctx context.Context, req llm.InvokeRequest) (string, error)

func (f funcInvoker) Invoke(ctx context.Context, req llm.InvokeRequest) (string, error) {
	return f(ctx, req)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stageWith(t *testing.T, store storage.ObjectStore, inv llm.Invoker) *Stage {
	t.Helper()
	gw := llm.NewGateway(inv, llm.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}, discard())
	return NewStage(store, gw, 8192, discard())
}

func putArtifact(t *testing.T, store *storage.Memory, key string, extracted map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"arquivo_origem":  "emissao-x/termo.pdf",
		"dados_extraidos": extracted,
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), testBucket, key, body, "application/json"))
}

func TestExecuteNoPriorPassesThrough(t *testing.T) {
	store := storage.NewMemory()
	inv := funcInvoker(func(_ context.Context, _ llm.InvokeRequest) (string, error) {
		t.Fatal("no model call expected without a prior artifact")
		return "", nil
	})

	record := map[string]any{"volume_total": 1000.0}
	out := stageWith(t, store, inv).Execute(context.Background(), testBucket, "emissao-x", record)

	assert.Equal(t, record, out.Record)
	assert.Empty(t, out.PriorKey)
	assert.False(t, out.Failed)
}

func TestExecuteMergesWithLatestPrior(t *testing.T) {
	store := storage.NewMemory()
	putArtifact(t, store, "emissao-x/output/termo_20250101_000000.json",
		map[string]any{"rating": "antigo", "validacao": map[string]any{"status": "APROVADA"}})
	putArtifact(t, store, "emissao-x/output/termo_20250301_000000.json",
		map[string]any{"rating": "brAAA", "validacao": map[string]any{"status": "APROVADA"}})
	store.Touch(testBucket, "emissao-x/output/termo_20250101_000000.json",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	store.Touch(testBucket, "emissao-x/output/termo_20250301_000000.json",
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	var sawValidacao bool
	inv := funcInvoker(func(_ context.Context, req llm.InvokeRequest) (string, error) {
		if json.Valid([]byte(req.User)) {
			t.Fatal("prompt should wrap the JSONs, not be bare JSON")
		}
		sawValidacao = strings.Contains(req.User, `"validacao"`)
		return `{"rating": "brAAA", "volume_total": 2000}`, nil
	})

	record := map[string]any{"volume_total": 2000.0, "rating": "N/A"}
	out := stageWith(t, store, inv).Execute(context.Background(), testBucket, "emissao-x", record)

	assert.Equal(t, "emissao-x/output/termo_20250301_000000.json", out.PriorKey)
	assert.False(t, out.Failed)
	assert.Equal(t, "brAAA", out.Record["rating"])
	assert.Equal(t, 2000.0, out.Record["volume_total"])
	assert.False(t, sawValidacao, "prior validation block must be stripped before the merge call")
}

func TestExecuteModelGarbageFallsBackToNewRecord(t *testing.T) {
	store := storage.NewMemory()
	putArtifact(t, store, "emissao-x/output/termo_20250101_000000.json",
		map[string]any{"rating": "brAAA"})

	inv := funcInvoker(func(_ context.Context, _ llm.InvokeRequest) (string, error) {
		return "desculpe, não consigo mesclar esses documentos", nil
	})

	record := map[string]any{"volume_total": 2000.0}
	out := stageWith(t, store, inv).Execute(context.Background(), testBucket, "emissao-x", record)

	assert.Equal(t, record, out.Record)
	assert.Equal(t, "emissao-x/output/termo_20250101_000000.json", out.PriorKey)
	assert.True(t, out.Failed)
}

func TestExecutePriorMissingDataDegrades(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), testBucket,
		"emissao-x/output/termo_20250101_000000.json",
		[]byte(`{"arquivo_origem": "x.pdf"}`), "application/json"))

	inv := funcInvoker(func(_ context.Context, _ llm.InvokeRequest) (string, error) {
		t.Fatal("no model call expected when the prior has no extracted data")
		return "", nil
	})

	record := map[string]any{"volume_total": 2000.0}
	out := stageWith(t, store, inv).Execute(context.Background(), testBucket, "emissao-x", record)

	assert.Equal(t, record, out.Record)
	assert.Empty(t, out.PriorKey)
	assert.False(t, out.Failed)
}

func TestExecuteIgnoresEmptyAndNonJSONObjects(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Put(context.Background(), testBucket,
		"emissao-x/output/notas.txt", []byte("irrelevante"), "text/plain"))
	require.NoError(t, store.Put(context.Background(), testBucket,
		"emissao-x/output/vazio.json", nil, "application/json"))

	inv := funcInvoker(func(_ context.Context, _ llm.InvokeRequest) (string, error) {
		t.Fatal("no model call expected")
		return "", nil
	})

	record := map[string]any{"volume_total": 2000.0}
	out := stageWith(t, store, inv).Execute(context.Background(), testBucket, "emissao-x", record)
	assert.Empty(t, out.PriorKey)
	assert.Equal(t, record, out.Record)
}
