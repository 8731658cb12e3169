package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/feirante/feirante/internal/model"
)

// Invoice items arrive as two or three fixed-format lines:
//
//	BANANA TERRA (Código: AR004808)
//	Qtde.:1,915 UN: KG9 Vl. Unit.: 6,99
//	13,39
//
// The third line (the line total) is optional; when absent or unparsable the
// total is computed as quantity × unit price.
var (
	invoiceNameRe  = regexp.MustCompile(`^(.+?)\s*\(C[óo]digo:\s*([A-Za-z0-9-]+)\)$`)
	invoiceQtyRe   = regexp.MustCompile(`^Qtde\.?:\s*(\d+(?:[.,]\d+)?)\s+UN:\s*([A-Za-z]+\d*)\s+Vl\.?\s*Unit\.?:\s*(\d+(?:[.,]\d+)?)$`)
	invoiceTotalRe = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)

	trailingDigitsRe = regexp.MustCompile(`\d+$`)
)

// Store systems append a sequence number to the unit code (e.g. KG9); the
// code is mapped after stripping it.
var unitCodeNames = map[string]string{
	"KG":  "kilogram",
	"UND": "unit",
	"UN":  "unit",
	"PCT": "package",
	"BDJ": "tray",
	"MCO": "bundle",
	"FRC": "bottle",
	"L":   "liter",
	"G":   "gram",
	"CX":  "box",
}

// ReadInvoice parses structured invoice text into raw items. Lines that do
// not fit the grammar are logged and skipped so one malformed entry never
// costs the whole invoice.
func ReadInvoice(rawText string) []model.RawItem {
	lines := splitLines(rawText)

	var items []model.RawItem
	skipped := 0

	for i := 0; i < len(lines); i++ {
		nameMatch := invoiceNameRe.FindStringSubmatch(lines[i])
		if nameMatch == nil {
			skipped++
			slog.Debug("invoice line outside item grammar, skipping", "line", lines[i])
			continue
		}

		if i+1 >= len(lines) {
			skipped++
			slog.Warn("invoice item name without quantity line, skipping", "name", nameMatch[1])
			break
		}

		qtyMatch := invoiceQtyRe.FindStringSubmatch(lines[i+1])
		if qtyMatch == nil {
			skipped++
			slog.Warn("invoice quantity line malformed, skipping item",
				"name", nameMatch[1], "line", lines[i+1])
			continue
		}

		qty, okQty := parseDecimal(qtyMatch[1])
		price, okPrice := parseDecimal(qtyMatch[3])
		if !okQty || !okPrice {
			skipped++
			slog.Warn("invoice numbers unparsable, skipping item", "name", nameMatch[1])
			i++
			continue
		}

		item := model.RawItem{
			OriginalText:   lines[i] + "\n" + lines[i+1],
			ProductNameRaw: strings.TrimSpace(nameMatch[1]),
			StoreCode:      nameMatch[2],
			Quantity:       qty,
			UnitHint:       unitCodeName(qtyMatch[2]),
			UnitPrice:      &price,
		}
		i++

		total := qty * price
		if i+1 < len(lines) && invoiceTotalRe.MatchString(lines[i+1]) {
			if parsed, ok := parseDecimal(lines[i+1]); ok {
				total = parsed
			}
			i++
		}
		item.LineTotal = &total

		items = append(items, item)
	}

	if skipped > 0 {
		slog.Info("invoice read with skipped lines", "items", len(items), "skipped", skipped)
	}

	return items
}

func unitCodeName(code string) string {
	code = trailingDigitsRe.ReplaceAllString(strings.ToUpper(code), "")
	if name, ok := unitCodeNames[code]; ok {
		return name
	}
	return "unit"
}

func splitLines(rawText string) []string {
	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
