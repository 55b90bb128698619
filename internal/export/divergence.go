// Package export renders divergence reports for analyst review.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dfcoelho/cri-extractor/internal/validation"
)

const sheetName = "Divergencias"

// BuildDivergenceXLSX renders a validation result as a spreadsheet: a small
// metadata block followed by one row per divergent field.
func BuildDivergenceXLSX(originKey string, res validation.Result) ([]byte, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}

	meta := [][]any{
		{"Arquivo de Origem", originKey},
		{"Status", string(res.Status)},
		{"Chave de Match", res.ChaveMatch},
		{"Fonte CVM", res.FonteDadosCVM},
		{"Timestamp", res.Timestamp},
	}
	row := 1
	for _, m := range meta {
		if err := setRow(f, row, m); err != nil {
			return nil, err
		}
		row++
	}
	row++

	header := []any{"Campo", "Valor Extraído", "Valor CVM", "Detalhe"}
	if err := setRow(f, row, header); err != nil {
		return nil, err
	}
	row++

	for _, d := range res.Divergencias {
		vals := []any{d.Campo, fmt.Sprintf("%v", d.ValorLLM), fmt.Sprintf("%v", d.ValorCVM), d.Detalhe}
		if err := setRow(f, row, vals); err != nil {
			return nil, err
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("export: cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("export: set cell: %w", err)
		}
	}
	return nil
}
