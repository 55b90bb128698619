// Package pipeline orchestrates the extraction run: fetch, text, chunk,
// map, reduce, merge, validate, persist.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/dfcoelho/cri-extractor/constants"
	"github.com/dfcoelho/cri-extractor/internal/common"
	"github.com/dfcoelho/cri-extractor/internal/document"
	"github.com/dfcoelho/cri-extractor/internal/export"
	"github.com/dfcoelho/cri-extractor/internal/llm"
	"github.com/dfcoelho/cri-extractor/internal/merge"
	"github.com/dfcoelho/cri-extractor/internal/storage"
	"github.com/dfcoelho/cri-extractor/internal/validation"
)

// Result is the run summary returned to the caller.
type Result struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	OutputKey        string `json:"output_key,omitempty"`
	Merged           bool   `json:"merged"`
	ValidationStatus string `json:"validation_status,omitempty"`
}

// MergeInfo records consolidation provenance in the artifact.
type MergeInfo struct {
	MergedWithFile string `json:"merged_with_file"`
	MergeFailed    bool   `json:"merge_failed,omitempty"`
}

// divergenceReport is the JSON rendition of a rejected validation,
// carrying the origin document alongside the full result.
type divergenceReport struct {
	ArquivoOrigem string            `json:"arquivo_origem"`
	Validacao     validation.Result `json:"validacao"`
}

// Artifact is the persisted extraction output.
type Artifact struct {
	ArquivoOrigem     string         `json:"arquivo_origem"`
	TipoDocumento     string         `json:"tipo_documento"`
	TimestampExtracao string         `json:"timestamp_extracao"`
	DadosExtraidos    map[string]any `json:"dados_extraidos"`
	MergeInfo         *MergeInfo     `json:"merge_info"`
}

// Validator answers the record reconciliation query.
type Validator interface {
	Validate(ctx context.Context, record map[string]any, processRaw string, now time.Time) validation.Result
}

// Processor runs the whole extraction pipeline for one object.
type Processor struct {
	store     storage.ObjectStore
	extractor document.TextExtractor
	chunker   *document.Chunker
	mapStage  *MapStage
	reduce    *ReduceStage
	merge     *merge.Stage
	validator Validator
	cfg       *common.Config
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessor(
	store storage.ObjectStore,
	extractor document.TextExtractor,
	gateway *llm.Gateway,
	validator Validator,
	cfg *common.Config,
	logger *slog.Logger,
) *Processor {
	p := cfg.Pipeline
	return &Processor{
		store:     store,
		extractor: extractor,
		chunker:   document.NewChunker(p.ChunkSize, p.ChunkOverlap),
		mapStage:  NewMapStage(gateway, p.WorkerPool, p.SafetyMargin, p.MapMaxTokens, cfg.Model.Temperature, logger),
		reduce:    NewReduceStage(gateway, p.ReduceMaxTokens, cfg.Model.Temperature, logger),
		merge:     merge.NewStage(store, gateway, p.MergeMaxTokens, logger),
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessObject runs the pipeline on bucket/key. Expected failure modes
// (deadline, unparseable extraction) come back as an error-status Result
// with a nil error so the trigger is not retried; unexpected failures
// return a real error.
func (p *Processor) ProcessObject(ctx context.Context, bucket, key string) (Result, error) {
	start := p.now()
	p.logger.Info("pipeline.start", "bucket", bucket, "key", key)

	data, err := p.store.Get(ctx, bucket, key)
	if err != nil {
		return Result{}, common.NewAppError("SOURCE_FETCH", fmt.Sprintf("fetch source object %s", key), err)
	}

	text, err := p.extractor.ExtractText(ctx, data)
	if err != nil {
		return Result{}, common.NewAppError("TEXT_EXTRACT", "extract text from source document", err)
	}

	chunks := p.chunker.Split(text)
	p.logger.Info("pipeline.chunked", "key", key, "chunks", len(chunks), "text_len", len(text))
	if p.cfg.Pipeline.DebugChunks {
		for i, c := range chunks {
			if i >= 5 {
				break
			}
			p.logger.Debug("pipeline.chunk_preview", "chunk", i, "preview", preview(c, 200))
		}
	}

	summaries, err := p.mapStage.Run(ctx, chunks)
	if err != nil {
		if errors.Is(err, ErrMapDeadline) {
			p.logger.Error("pipeline.map.deadline", "key", key, "error", err)
			return Result{Status: "error", Reason: "tempo esgotado durante a sumarização"}, nil
		}
		return Result{}, err
	}

	record, err := p.reduce.Run(ctx, Aggregate(summaries), llm.TermSheetSchema())
	if err != nil {
		if errors.Is(err, ErrUnparseableReduce) {
			p.logger.Error("pipeline.reduce.unparseable", "key", key, "error", err)
			return Result{Status: "error", Reason: "resposta do modelo não pôde ser convertida em JSON"}, nil
		}
		return Result{}, err
	}

	folder := path.Dir(key)
	outcome := p.merge.Execute(ctx, bucket, folder, record)
	record = outcome.Record

	vres := p.validate(ctx, record)
	record["validacao"] = vres

	docType := constants.DocTypeTermSheet
	if outcome.PriorKey != "" {
		docType = constants.DocTypeAmendment
	}

	ts := p.now().UTC()
	artifact := Artifact{
		ArquivoOrigem:     key,
		TipoDocumento:     docType,
		TimestampExtracao: ts.Format(time.RFC3339),
		DadosExtraidos:    record,
	}
	if outcome.PriorKey != "" {
		artifact.MergeInfo = &MergeInfo{
			MergedWithFile: outcome.PriorKey,
			MergeFailed:    outcome.Failed,
		}
	}

	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	stamp := ts.Format("20060102_150405")
	outputKey := path.Join(folder, "output", base+"_"+stamp+".json")

	body, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return Result{}, common.NewAppError("ARTIFACT_MARSHAL", "marshal artifact", err)
	}
	if err := p.store.Put(ctx, bucket, outputKey, body, "application/json"); err != nil {
		return Result{}, common.NewAppError("ARTIFACT_PERSIST", fmt.Sprintf("persist artifact %s", outputKey), err)
	}

	if vres.Status == constants.ValidationRejected && p.cfg.Report.Prefix != "" {
		p.writeDivergenceReport(ctx, bucket, base, stamp, key, vres)
	}

	p.logger.Info("pipeline.done",
		"key", key,
		"output_key", outputKey,
		"validation_status", vres.Status,
		"merged", outcome.PriorKey != "",
		"elapsed_ms", time.Since(start).Milliseconds())

	return Result{
		Status:           "success",
		OutputKey:        outputKey,
		Merged:           outcome.PriorKey != "" && !outcome.Failed,
		ValidationStatus: string(vres.Status),
	}, nil
}

// validate cleans the process-number field and runs the reconciliation.
// A field that only referenced legislation is cleared from the record; an
// empty field short-circuits to a pending result.
func (p *Processor) validate(ctx context.Context, record map[string]any) validation.Result {
	raw, _ := record["numero_processo"].(string)
	cleaned, dropped := validation.CleanProcessNumber(raw)
	if dropped {
		p.logger.Warn("pipeline.validate.false_positive_dropped", "raw", raw, "cleaned", cleaned)
		if cleaned == "" {
			record["numero_processo"] = nil
		} else {
			record["numero_processo"] = cleaned
		}
	}
	if cleaned == "" {
		return validation.PendingResult("Número de processo ausente na extração.", p.now())
	}
	return p.validator.Validate(ctx, record, cleaned, p.now())
}

// writeDivergenceReport persists the JSON report and, when configured, the
// spreadsheet rendering. Reports are best effort: a failure is logged and
// never fails the run.
func (p *Processor) writeDivergenceReport(ctx context.Context, bucket, base, stamp, originKey string, vres validation.Result) {
	reportKey := path.Join(p.cfg.Report.Prefix, base+"_divergencia_"+stamp+".json")
	body, err := json.MarshalIndent(divergenceReport{
		ArquivoOrigem: originKey,
		Validacao:     vres,
	}, "", "  ")
	if err != nil {
		p.logger.Warn("pipeline.report.marshal_failed", "error", err)
		return
	}
	if err := p.store.Put(ctx, bucket, reportKey, body, "application/json"); err != nil {
		p.logger.Warn("pipeline.report.put_failed", "report_key", reportKey, "error", err)
		return
	}
	p.logger.Info("pipeline.report.written", "report_key", reportKey)

	if !p.cfg.Report.XLSX {
		return
	}
	xlsx, err := export.BuildDivergenceXLSX(originKey, vres)
	if err != nil {
		p.logger.Warn("pipeline.report.xlsx_failed", "error", err)
		return
	}
	xlsxKey := strings.TrimSuffix(reportKey, ".json") + ".xlsx"
	if err := p.store.Put(ctx, bucket, xlsxKey, xlsx,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"); err != nil {
		p.logger.Warn("pipeline.report.xlsx_put_failed", "report_key", xlsxKey, "error", err)
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
