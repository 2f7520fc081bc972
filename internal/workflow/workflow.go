// Package workflow drives the delivery-status lifecycle of an order. Direct
// status changes are confirmed upstream before they are reported as applied;
// selecting Return never writes anything and instead opens a reconciliation
// that must balance before the status moves.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stockdesk/backend/internal/domain"
	"stockdesk/backend/internal/returns"
)

var ErrUnknownStatus = errors.New("unknown delivery status")

// OrderGateway is the slice of the upstream order service the engine needs.
type OrderGateway interface {
	Order(ctx context.Context, orderID string) (domain.Order, error)
	UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, items []domain.ReturnLine) error
}

// Outcome reports what a status selection produced. Exactly one of Applied
// and PendingReturn is set: a Return selection defers the write and hands
// back a prefilled reconciliation instead.
type Outcome struct {
	Applied       domain.DeliveryStatus `json:"applied_status,omitempty"`
	PendingReturn *PendingReturn        `json:"pending_return,omitempty"`
}

// PendingReturn is the reconciliation seeded from the order's shipped lines:
// every line starts fully okay with zero defective.
type PendingReturn struct {
	OrderID string              `json:"order_id"`
	Lines   []domain.ReturnLine `json:"items"`
}

type Engine struct {
	gateway OrderGateway
}

func NewEngine(gateway OrderGateway) *Engine {
	return &Engine{gateway: gateway}
}

// SelectStatus handles a status choice for an order. Any recognised status may
// be selected regardless of the current one; only unrecognised values are
// rejected. Non-Return targets are written upstream first and reported as
// applied only after the write succeeds, so a failed write leaves the visible
// status untouched.
func (e *Engine) SelectStatus(ctx context.Context, orderID string, target domain.DeliveryStatus) (Outcome, error) {
	if !target.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}

	if target == domain.StatusReturn {
		order, err := e.gateway.Order(ctx, orderID)
		if err != nil {
			return Outcome{}, fmt.Errorf("load order %s: %w", orderID, err)
		}
		return Outcome{PendingReturn: &PendingReturn{
			OrderID: orderID,
			Lines:   returns.PrefillLines(order.Lines),
		}}, nil
	}

	if err := e.gateway.UpdateDeliveryStatus(ctx, orderID, target, nil); err != nil {
		return Outcome{}, fmt.Errorf("update delivery status of %s: %w", orderID, err)
	}
	log.Printf("[workflow] order %s delivery status set to %s", orderID, target)
	return Outcome{Applied: target}, nil
}

// SubmitReturn validates the reconciled quantities and, only if every line
// balances, writes the Return status together with the split quantities in a
// single upstream call.
func (e *Engine) SubmitReturn(ctx context.Context, orderID string, inputs []domain.ReturnLineInput) (domain.ReturnRequest, error) {
	req, err := returns.Validate(orderID, inputs)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if err := e.gateway.UpdateDeliveryStatus(ctx, orderID, domain.StatusReturn, req.Lines); err != nil {
		return domain.ReturnRequest{}, fmt.Errorf("submit return for %s: %w", orderID, err)
	}
	log.Printf("[workflow] order %s moved to %s with %d reconciled lines", orderID, domain.StatusReturn, len(req.Lines))
	return req, nil
}
