package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// latin1CSV renders rows in the registry's ISO-8859-1 encoding.
func latin1CSV(lines ...string) []byte {
	var out []byte
	for _, line := range lines {
		for _, r := range line {
			// Test data stays within Latin-1.
			out = append(out, byte(r))
		}
		out = append(out, '\n')
	}
	return out
}

func TestParseDatasetIndexesNormalizedKeys(t *testing.T) {
	data := latin1CSV(
		"CNPJ_Emissor,Numero_Requerimento,Numero_Processo,Valor_Total_Registrado,Nome_Emissor,Agente_fiduciario",
		"12.345.678/0001-90,3,CVM/SRE/AUT/CRI/PRI/2025/590,20000000.00,Secur S.A.,Agente X",
	)

	ds, err := ParseDataset(data, "cvm/registro.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "cvm/registro.csv", ds.SourceKey)

	key := BuildMatchKey("12345678000190", "3ª Emissão", "SRE/0590/2025")
	row, ok := ds.Lookup(key)
	require.True(t, ok, "long-form process in CSV must match canonical key")
	assert.Equal(t, "SRE/0590/2025", row[colProcess])
	assert.Equal(t, "20000000.00", row[colTotal])
}

func TestParseDatasetLatin1Decoding(t *testing.T) {
	header := "CNPJ_Emissor,Numero_Requerimento,Numero_Processo,Nome_Emissor"
	// "Securitização" with ç (0xE7), ã (0xE3) as raw Latin-1 bytes.
	row := []byte("11.111.111/0001-11,1,SRE/1/2025,Securitiza\xe7\xe3o Alfa\n")
	data := append(latin1CSV(header), row...)

	ds, err := ParseDataset(data, "cvm/registro.csv")
	require.NoError(t, err)

	key := BuildMatchKey("11111111000111", 1, "SRE/0001/2025")
	got, ok := ds.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "Securitização Alfa", got[colIssuer])
}

func TestParseDatasetMissingRequiredColumn(t *testing.T) {
	data := latin1CSV(
		"CNPJ_Emissor,Numero_Processo",
		"12.345.678/0001-90,SRE/1/2025",
	)
	_, err := ParseDataset(data, "cvm/registro.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Numero_Requerimento")
}

func TestParseDatasetFirstRowWinsOnDuplicateKey(t *testing.T) {
	data := latin1CSV(
		"CNPJ_Emissor,Numero_Requerimento,Numero_Processo,Nome_Emissor",
		"11.111.111/0001-11,1,SRE/1/2025,Primeira",
		"11.111.111/0001-11,1,SRE/1/2025,Segunda",
	)
	ds, err := ParseDataset(data, "cvm/registro.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())

	row, ok := ds.Lookup(BuildMatchKey("11111111000111", 1, "SRE/0001/2025"))
	require.True(t, ok)
	assert.Equal(t, "Primeira", row[colIssuer])
}

func TestParseDatasetRaggedRows(t *testing.T) {
	data := latin1CSV(
		"CNPJ_Emissor,Numero_Requerimento,Numero_Processo,Nome_Emissor",
		"11.111.111/0001-11,1,SRE/1/2025",
	)
	ds, err := ParseDataset(data, "cvm/registro.csv")
	require.NoError(t, err)
	row, ok := ds.Lookup(BuildMatchKey("11111111000111", 1, "SRE/0001/2025"))
	require.True(t, ok)
	assert.Equal(t, "", row[colIssuer])
}
