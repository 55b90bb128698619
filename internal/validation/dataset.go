package validation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Column names as published in the CVM securitization registry export.
const (
	colCNPJ      = "CNPJ_Emissor"
	colRequest   = "Numero_Requerimento"
	colProcess   = "Numero_Processo"
	colTotal     = "Valor_Total_Registrado"
	colIssuer    = "Nome_Emissor"
	colFiduciary = "Agente_fiduciario"
)

var requiredColumns = []string{colCNPJ, colRequest, colProcess}

// Row is one registry record keyed by column name.
type Row map[string]string

// Dataset is the parsed registry export, indexed by the composite match
// key so lookups are O(1) per candidate.
type Dataset struct {
	SourceKey string

	rows  []Row
	index map[string]Row
}

// ParseDataset reads the registry CSV. The export is Latin-1 encoded and
// semicolon-free; rows may carry trailing columns, so field counts are not
// enforced. The first row seen for a key wins.
func ParseDataset(data []byte, sourceKey string) (*Dataset, error) {
	decoded := transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder())
	r := csv.NewReader(decoded)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("validation: read dataset header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	colPos := make(map[string]int, len(header))
	for i, h := range header {
		colPos[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colPos[col]; !ok {
			return nil, fmt.Errorf("validation: dataset missing column %q", col)
		}
	}

	ds := &Dataset{
		SourceKey: sourceKey,
		index:     make(map[string]Row),
	}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("validation: read dataset row: %w", err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		row[colProcess] = NormalizeProcess(row[colProcess])
		ds.rows = append(ds.rows, row)

		key := BuildMatchKey(row[colCNPJ], row[colRequest], row[colProcess])
		if key == "" {
			continue
		}
		if _, exists := ds.index[key]; !exists {
			ds.index[key] = row
		}
	}
	return ds, nil
}

// Lookup returns the row matching the composite key, if any.
func (d *Dataset) Lookup(key string) (Row, bool) {
	row, ok := d.index[key]
	return row, ok
}

// Len reports how many data rows the export carried.
func (d *Dataset) Len() int { return len(d.rows) }
