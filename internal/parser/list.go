// Package parser turns unstructured list or invoice text into raw line items.
// Both adapters are line-local and tolerant: a line that matches no grammar
// is never a reason to abort the whole input.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/feirante/feirante/internal/model"
)

const unitTokens = `kg|g|l|ml|un|unidades?|pacotes?|latas?|x`

var (
	qtyFirstRe = regexp.MustCompile(`(?i)^(\d+(?:[.,]\d+)?)\s*(` + unitTokens + `)?\s+(.+)$`)
	qtyLastRe  = regexp.MustCompile(`(?i)^(.+?)\s+(\d+(?:[.,]\d+)?)\s*(` + unitTokens + `)?$`)

	parenRe   = regexp.MustCompile(`\s*\([^)]*\)`)
	altQtyRe  = regexp.MustCompile(`(?i)\s+ou(\s+\d+(?:[.,]\d+)?.*)?$`)
	sizeWords = regexp.MustCompile(`(?i)\b(grandes?|pequen[oa]s?|m[ée]di[oa]s?|gigantes?)\b`)
	spacesRe  = regexp.MustCompile(`\s{2,}`)
)

// AnalyzeList splits free-form shopping list text into raw items using
// positional-quantity heuristics. It never fails: a line that fits neither
// quantity pattern becomes an item with quantity 1 and no unit.
func AnalyzeList(rawText string) []model.RawItem {
	var items []model.RawItem

	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		item := analyzeLine(line)
		if item.ProductNameRaw == "" {
			continue
		}
		items = append(items, item)
	}

	return items
}

func analyzeLine(line string) model.RawItem {
	item := model.RawItem{OriginalText: line, Quantity: 1}

	if m := qtyFirstRe.FindStringSubmatch(line); m != nil {
		if qty, ok := parseDecimal(m[1]); ok {
			item.Quantity = qty
			item.UnitHint = strings.ToLower(m[2])
			item.ProductNameRaw = cleanName(m[3])
			return item
		}
	}

	if m := qtyLastRe.FindStringSubmatch(line); m != nil {
		if qty, ok := parseDecimal(m[2]); ok {
			item.Quantity = qty
			item.UnitHint = strings.ToLower(m[3])
			item.ProductNameRaw = cleanName(m[1])
			return item
		}
	}

	item.ProductNameRaw = cleanName(line)
	return item
}

// cleanName strips parenthesized annotations, size adjectives, and trailing
// "ou <quantity>" alternates from a product name.
func cleanName(name string) string {
	name = parenRe.ReplaceAllString(name, "")
	name = altQtyRe.ReplaceAllString(name, "")
	name = sizeWords.ReplaceAllString(name, "")
	name = spacesRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// parseDecimal parses a decimal that may use a comma as separator.
func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
