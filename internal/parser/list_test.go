package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeListQuantityFirst(t *testing.T) {
	items := AnalyzeList("2kg Arroz")
	require.Len(t, items, 1)

	assert.Equal(t, "Arroz", items[0].ProductNameRaw)
	assert.Equal(t, 2.0, items[0].Quantity)
	assert.Equal(t, "kg", items[0].UnitHint)
}

func TestAnalyzeListQuantityLast(t *testing.T) {
	items := AnalyzeList("Leite 2")
	require.Len(t, items, 1)

	assert.Equal(t, "Leite", items[0].ProductNameRaw)
	assert.Equal(t, 2.0, items[0].Quantity)
	assert.Empty(t, items[0].UnitHint)
}

func TestAnalyzeListBareName(t *testing.T) {
	items := AnalyzeList("Pão")
	require.Len(t, items, 1)

	assert.Equal(t, "Pão", items[0].ProductNameRaw)
	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Empty(t, items[0].UnitHint)
}

func TestAnalyzeListCommaDecimal(t *testing.T) {
	items := AnalyzeList("1,5l Suco de laranja")
	require.Len(t, items, 1)

	assert.Equal(t, "Suco de laranja", items[0].ProductNameRaw)
	assert.Equal(t, 1.5, items[0].Quantity)
	assert.Equal(t, "l", items[0].UnitHint)
}

func TestAnalyzeListMultipleLines(t *testing.T) {
	raw := "2kg Arroz\n\nLeite 2\n   \nPão"
	items := AnalyzeList(raw)
	require.Len(t, items, 3)

	assert.Equal(t, "Arroz", items[0].ProductNameRaw)
	assert.Equal(t, "Leite", items[1].ProductNameRaw)
	assert.Equal(t, "Pão", items[2].ProductNameRaw)
}

func TestAnalyzeListNameCleaning(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{line: "Feijão (carioca)", want: "Feijão"},
		{line: "Detergente ou 2", want: "Detergente"},
		{line: "Melancia grande", want: "Melancia"},
		{line: "Ovos (brancos) grandes", want: "Ovos"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			items := AnalyzeList(tt.line)
			require.Len(t, items, 1)
			assert.Equal(t, tt.want, items[0].ProductNameRaw)
		})
	}
}

func TestAnalyzeListUnitWords(t *testing.T) {
	items := AnalyzeList("2 pacotes Macarrão\n3 latas Milho")
	require.Len(t, items, 2)

	assert.Equal(t, "pacotes", items[0].UnitHint)
	assert.Equal(t, "Macarrão", items[0].ProductNameRaw)
	assert.Equal(t, "latas", items[1].UnitHint)
	assert.Equal(t, "Milho", items[1].ProductNameRaw)
}

func TestAnalyzeListOriginalTextPreserved(t *testing.T) {
	items := AnalyzeList("  2kg Arroz  ")
	require.Len(t, items, 1)
	assert.Equal(t, "2kg Arroz", items[0].OriginalText)
}

func TestAnalyzeListEmptyInput(t *testing.T) {
	assert.Empty(t, AnalyzeList(""))
	assert.Empty(t, AnalyzeList("\n \n\t\n"))
}
