// Package returns reconciles a delivered order back into defective and okay
// portions. A return is accepted only when every line's split reconstructs
// the originally shipped quantity.
package returns

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"stockdesk/backend/internal/domain"
)

var ErrNoLines = errors.New("return request has no lines")

// ValidationError reports which lines failed the sum invariant. The original
// system returned a single opaque rejection; pinpointing the offending lines
// lets the caller highlight them.
type ValidationError struct {
	LineIndices []int
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.LineIndices))
	for _, idx := range e.LineIndices {
		parts = append(parts, strconv.Itoa(idx))
	}
	return fmt.Sprintf("defective and okay quantities must sum to the original quantity (lines %s)", strings.Join(parts, ", "))
}

// Validate normalizes user-entered return lines and checks the sum invariant
// on each: defective + okay == original with both parts non-negative. Any
// failing line rejects the whole request; there is no partial acceptance.
// String quantities parse leniently (non-numeric becomes 0), which makes
// malformed input fail the invariant instead of silently passing.
func Validate(orderID string, inputs []domain.ReturnLineInput) (domain.ReturnRequest, error) {
	if len(inputs) == 0 {
		return domain.ReturnRequest{}, ErrNoLines
	}

	lines := make([]domain.ReturnLine, 0, len(inputs))
	bad := make([]int, 0)
	for i, input := range inputs {
		defective := coerceQuantity(input.DefectiveQuantity)
		okay := coerceQuantity(input.OkayQuantity)

		if defective < 0 || okay < 0 || defective+okay != input.OriginalQuantity {
			bad = append(bad, i)
		}

		lines = append(lines, domain.ReturnLine{
			ItemCode:          input.ItemCode,
			ItemName:          input.ItemName,
			CategoryName:      input.CategoryName,
			OriginalQuantity:  input.OriginalQuantity,
			DefectiveQuantity: defective,
			OkayQuantity:      okay,
		})
	}

	if len(bad) > 0 {
		return domain.ReturnRequest{}, &ValidationError{LineIndices: bad}
	}

	return domain.ReturnRequest{OrderID: orderID, Lines: lines}, nil
}

// PrefillLines seeds the reconciliation form from an order's shipped lines:
// everything starts as okay, nothing defective.
func PrefillLines(orderLines []domain.OrderLine) []domain.ReturnLine {
	lines := make([]domain.ReturnLine, 0, len(orderLines))
	for _, line := range orderLines {
		lines = append(lines, domain.ReturnLine{
			ItemCode:         line.ItemCode,
			ItemName:         line.ItemName,
			CategoryName:     line.CategoryName,
			OriginalQuantity: line.Quantity,
			OkayQuantity:     line.Quantity,
		})
	}
	return lines
}

func coerceQuantity(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	qty, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0
	}
	return qty
}
