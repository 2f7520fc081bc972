// Package orderform holds the pure reducers behind the order-composition
// screens: cascading category -> item -> warehouse selection and the derived
// order totals. Eligible item and warehouse sets are always computed from the
// current line plus the reference-data snapshot, never stored alongside it.
package orderform

import (
	"strconv"
	"strings"

	"stockdesk/backend/internal/domain"
)

// WarehouseOption is one selectable warehouse batch for a line's item. A
// warehouse holding two batches of the same item yields two options.
type WarehouseOption struct {
	WarehouseID        string `json:"warehouse_id"`
	InwardReference    string `json:"inward_reference"`
	InwardShipmentMark string `json:"inward_shipment_mark"`
	Quantity           int    `json:"quantity"`
}

// NewLine returns a fresh, unselected order line as the form seeds it.
func NewLine() domain.OrderLine {
	return domain.OrderLine{Quantity: 1}
}

// SelectCategory records the new category on the line and resets the item
// selection. Choosing an unknown category is not an error; it simply leaves
// the eligible item set empty.
func SelectCategory(line domain.OrderLine, categoryName string) domain.OrderLine {
	line.CategoryName = categoryName
	line.ItemName = ""
	line.ItemCode = ""
	return line
}

// EligibleItems returns the items belonging to the named category, or an
// empty slice when the category is unknown or has no items.
func EligibleItems(categoryName string, categories []domain.Category) []domain.Item {
	for _, category := range categories {
		if category.Name == categoryName {
			return category.Items
		}
	}
	return []domain.Item{}
}

// SelectItem looks the item up by name within the eligible set and records
// its code. A name missing from the set clears the code instead of failing:
// stale eligible sets are expected during rapid category switches.
func SelectItem(line domain.OrderLine, itemName string, eligible []domain.Item) domain.OrderLine {
	line.ItemName = itemName
	line.ItemCode = ""
	for _, item := range eligible {
		if item.Name == itemName {
			line.ItemCode = item.Code
			break
		}
	}
	return line
}

// EligibleWarehouses flattens every stock entry matching the item code into
// one option per batch. Order is deterministic: warehouse iteration order,
// then entry order within a warehouse.
func EligibleWarehouses(itemCode string, warehouses []domain.Warehouse) []WarehouseOption {
	options := make([]WarehouseOption, 0, len(warehouses))
	if itemCode == "" {
		return options
	}
	for _, warehouse := range warehouses {
		for _, entry := range warehouse.Stock {
			if entry.ItemCode != itemCode {
				continue
			}
			options = append(options, WarehouseOption{
				WarehouseID:        warehouse.ID,
				InwardReference:    entry.InwardReference,
				InwardShipmentMark: entry.InwardShipmentMark,
				Quantity:           entry.Quantity,
			})
		}
	}
	return options
}

// SelectWarehouse assigns the warehouse batch to the line. The caller is
// trusted to offer only eligible options; no re-validation happens here.
func SelectWarehouse(line domain.OrderLine, warehouseID, inwardReference, inwardShipmentMark string) domain.OrderLine {
	line.WarehouseID = warehouseID
	line.InwardReference = inwardReference
	line.InwardShipmentMark = inwardShipmentMark
	return line
}

// Totals bundles the derived money amounts of a line collection. The float
// fields accumulate unrounded; the display strings round to 2 decimals only
// at the edge so rounding error never compounds across lines.
type Totals struct {
	Subtotal          float64 `json:"subtotal"`
	TaxAmount         float64 `json:"tax_amount"`
	GrandTotal        float64 `json:"grand_total"`
	SubtotalDisplay   string  `json:"subtotal_display"`
	TaxAmountDisplay  string  `json:"tax_amount_display"`
	GrandTotalDisplay string  `json:"grand_total_display"`
}

func Subtotal(lines []domain.OrderLine) float64 {
	total := 0.0
	for _, line := range lines {
		total += float64(line.Quantity) * line.UnitPrice
	}
	return total
}

func TaxAmount(lines []domain.OrderLine, taxRatePercent float64) float64 {
	return Subtotal(lines) * taxRatePercent / 100
}

func GrandTotal(lines []domain.OrderLine, taxRatePercent float64) float64 {
	return Subtotal(lines) + TaxAmount(lines, taxRatePercent)
}

// Calculate recomputes every total from scratch; callers invoke it on each
// draft mutation rather than caching results.
func Calculate(lines []domain.OrderLine, taxRatePercent float64) Totals {
	subtotal := Subtotal(lines)
	tax := TaxAmount(lines, taxRatePercent)
	grand := subtotal + tax
	return Totals{
		Subtotal:          subtotal,
		TaxAmount:         tax,
		GrandTotal:        grand,
		SubtotalDisplay:   formatAmount(subtotal),
		TaxAmountDisplay:  formatAmount(tax),
		GrandTotalDisplay: formatAmount(grand),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// CoerceTaxRate parses a user-typed tax rate. Blank or non-numeric input is
// coerced to zero; negative rates are invalid and reported to the caller.
func CoerceTaxRate(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, true
	}
	rate, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, true
	}
	if rate < 0 {
		return 0, false
	}
	return rate, true
}

// AddLine appends a fresh line to the collection.
func AddLine(lines []domain.OrderLine) []domain.OrderLine {
	return append(lines, NewLine())
}

// RemoveLine drops the line at index, preserving the order of the rest.
// An out-of-range index leaves the collection unchanged.
func RemoveLine(lines []domain.OrderLine, index int) []domain.OrderLine {
	if index < 0 || index >= len(lines) {
		return lines
	}
	updated := make([]domain.OrderLine, 0, len(lines)-1)
	updated = append(updated, lines[:index]...)
	return append(updated, lines[index+1:]...)
}
