package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockdesk/backend/internal/domain"
	"stockdesk/backend/internal/orderform"
	"stockdesk/backend/internal/refdata"
	"stockdesk/backend/internal/store"
	"stockdesk/backend/internal/upstream"
	"stockdesk/backend/internal/workflow"
	"stockdesk/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

var (
	ErrLineOutOfRange = errors.New("line index out of range")
	ErrLineIncomplete = errors.New("order line incomplete")
	ErrEmptyDraft     = errors.New("draft has no lines")
	ErrNegativeTax    = errors.New("tax rate must not be negative")
)

// Service glues the draft store, the reference-data loader, the upstream
// client and the delivery workflow together. Drafts are edited one mutation
// per call; totals are recomputed on every read rather than stored.
type Service struct {
	repo     store.Repository
	api      upstream.API
	refdata  *refdata.Loader
	workflow *workflow.Engine
}

func New(repo store.Repository, api upstream.API, loader *refdata.Loader) *Service {
	return &Service{
		repo:     repo,
		api:      api,
		refdata:  loader,
		workflow: workflow.NewEngine(api),
	}
}

// DraftView is a draft plus its derived totals, the shape every draft
// endpoint responds with.
type DraftView struct {
	Draft  domain.DraftOrder `json:"draft"`
	Totals orderform.Totals  `json:"totals"`
}

func (s *Service) view(draft domain.DraftOrder) DraftView {
	return DraftView{
		Draft:  draft,
		Totals: orderform.Calculate(draft.Lines, draft.TaxRatePercent),
	}
}

func (s *Service) CreateDraft(ctx context.Context, req domain.DraftCreateRequest) (DraftView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return DraftView{}, fmt.Errorf("authenticated actor required")
	}

	draft := domain.DraftOrder{
		ID:        xid.New("draft"),
		ClientID:  strings.TrimSpace(req.ClientID),
		Lines:     orderform.AddLine(nil),
		CreatedBy: actor.Username,
	}
	created, err := s.repo.CreateDraft(ctx, draft)
	if err != nil {
		return DraftView{}, err
	}

	s.logAudit(ctx, "draft_create", "draft", created.ID, fmt.Sprintf("client=%s", created.ClientID))
	return s.view(*created), nil
}

func (s *Service) GetDraft(ctx context.Context, draftID string) (DraftView, error) {
	draft, err := s.repo.GetDraft(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	return s.view(*draft), nil
}

func (s *Service) ListDrafts(ctx context.Context) ([]DraftView, error) {
	actor, _ := ActorFromContext(ctx)
	drafts, err := s.repo.ListDrafts(ctx, actor.Username)
	if err != nil {
		return nil, err
	}
	views := make([]DraftView, 0, len(drafts))
	for _, draft := range drafts {
		views = append(views, s.view(draft))
	}
	return views, nil
}

func (s *Service) DiscardDraft(ctx context.Context, draftID string) error {
	if err := s.repo.DeleteDraft(ctx, draftID); err != nil {
		return err
	}
	s.logAudit(ctx, "draft_discard", "draft", draftID, "")
	return nil
}

func (s *Service) AddLine(ctx context.Context, draftID string) (DraftView, error) {
	return s.mutateDraft(ctx, draftID, func(draft *domain.DraftOrder) error {
		draft.Lines = orderform.AddLine(draft.Lines)
		return nil
	})
}

func (s *Service) RemoveLine(ctx context.Context, draftID string, index int) (DraftView, error) {
	return s.mutateDraft(ctx, draftID, func(draft *domain.DraftOrder) error {
		if index < 0 || index >= len(draft.Lines) {
			return ErrLineOutOfRange
		}
		draft.Lines = orderform.RemoveLine(draft.Lines, index)
		return nil
	})
}

// SelectLineCategory switches the line's category and resets its item
// selection, keeping quantity and price.
func (s *Service) SelectLineCategory(ctx context.Context, draftID string, index int, categoryName string) (DraftView, error) {
	return s.mutateLine(ctx, draftID, index, func(line domain.OrderLine) (domain.OrderLine, error) {
		return orderform.SelectCategory(line, categoryName), nil
	})
}

func (s *Service) SelectLineItem(ctx context.Context, draftID string, index int, itemName string) (DraftView, error) {
	snapshot, err := s.refdata.Load(ctx)
	if err != nil {
		return DraftView{}, err
	}
	return s.mutateLine(ctx, draftID, index, func(line domain.OrderLine) (domain.OrderLine, error) {
		eligible := orderform.EligibleItems(line.CategoryName, snapshot.Categories)
		return orderform.SelectItem(line, itemName, eligible), nil
	})
}

func (s *Service) SelectLineWarehouse(ctx context.Context, draftID string, index int, req domain.SelectWarehouseRequest) (DraftView, error) {
	return s.mutateLine(ctx, draftID, index, func(line domain.OrderLine) (domain.OrderLine, error) {
		return orderform.SelectWarehouse(line, req.WarehouseID, req.InwardReference, req.InwardShipmentMark), nil
	})
}

func (s *Service) UpdateLineQuantity(ctx context.Context, draftID string, index int, req domain.LineQuantityRequest) (DraftView, error) {
	return s.mutateLine(ctx, draftID, index, func(line domain.OrderLine) (domain.OrderLine, error) {
		if req.Quantity != nil {
			if *req.Quantity < 1 {
				return line, store.ErrInvalidInput
			}
			line.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			if *req.UnitPrice < 0 {
				return line, store.ErrInvalidInput
			}
			line.UnitPrice = *req.UnitPrice
		}
		return line, nil
	})
}

// SetTaxRate applies the user-typed tax rate to the draft. Blank and
// non-numeric input coerce to zero; negative rates are rejected.
func (s *Service) SetTaxRate(ctx context.Context, draftID string, raw string) (DraftView, error) {
	rate, ok := orderform.CoerceTaxRate(raw)
	if !ok {
		return DraftView{}, ErrNegativeTax
	}
	return s.mutateDraft(ctx, draftID, func(draft *domain.DraftOrder) error {
		draft.TaxRatePercent = rate
		return nil
	})
}

// WarehouseOptions lists the selectable warehouse batches for one draft line,
// computed against the current reference-data snapshot.
func (s *Service) WarehouseOptions(ctx context.Context, draftID string, index int) ([]orderform.WarehouseOption, error) {
	draft, err := s.repo.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(draft.Lines) {
		return nil, ErrLineOutOfRange
	}
	snapshot, err := s.refdata.Load(ctx)
	if err != nil {
		return nil, err
	}
	return orderform.EligibleWarehouses(draft.Lines[index].ItemCode, snapshot.Warehouses), nil
}

// EligibleItems exposes the item set of one category for the cascading
// selector.
func (s *Service) EligibleItems(ctx context.Context, categoryName string) ([]domain.Item, error) {
	snapshot, err := s.refdata.Load(ctx)
	if err != nil {
		return nil, err
	}
	return orderform.EligibleItems(categoryName, snapshot.Categories), nil
}

func (s *Service) ReferenceData(ctx context.Context) (*refdata.Snapshot, error) {
	return s.refdata.Load(ctx)
}

func (s *Service) RefreshReferenceData(ctx context.Context) (*refdata.Snapshot, error) {
	return s.refdata.Refresh(ctx)
}

// SubmitDraft turns a complete draft into an upstream order and deletes the
// draft only after the remote service has accepted it.
func (s *Service) SubmitDraft(ctx context.Context, draftID string) (domain.CreateOrderResponse, error) {
	draft, err := s.repo.GetDraft(ctx, draftID)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	if len(draft.Lines) == 0 {
		return domain.CreateOrderResponse{}, ErrEmptyDraft
	}
	for i, line := range draft.Lines {
		if line.ItemCode == "" || line.WarehouseID == "" || line.Quantity < 1 {
			return domain.CreateOrderResponse{}, fmt.Errorf("%w: line %d", ErrLineIncomplete, i)
		}
	}

	created, err := s.api.CreateOrder(ctx, domain.CreateOrderRequest{
		ClientID:       draft.ClientID,
		Items:          draft.Lines,
		TaxRatePercent: draft.TaxRatePercent,
	})
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}

	if err := s.repo.DeleteDraft(ctx, draftID); err != nil {
		log.Printf("[service] WARN: failed to delete submitted draft %s: %v", draftID, err)
	}
	s.logAudit(ctx, "order_create", "order", created.OrderID, fmt.Sprintf("draft=%s,lines=%d", draftID, len(draft.Lines)))
	return created, nil
}

// TransferInventory moves stock of one item between warehouses. The item name
// is resolved from the snapshot when the caller supplies only the code.
func (s *Service) TransferInventory(ctx context.Context, req domain.TransferRequest) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	req.FromWarehouseName = strings.TrimSpace(req.FromWarehouseName)
	req.ToWarehouseName = strings.TrimSpace(req.ToWarehouseName)
	req.ItemCode = strings.TrimSpace(req.ItemCode)
	if req.Quantity < 1 || req.ItemCode == "" || req.FromWarehouseName == "" || req.ToWarehouseName == "" {
		return store.ErrInvalidInput
	}
	if req.FromWarehouseName == req.ToWarehouseName {
		return store.ErrInvalidInput
	}

	if req.ItemName == "" {
		snapshot, err := s.refdata.Load(ctx)
		if err != nil {
			return err
		}
		for _, item := range snapshot.Items {
			if item.Code == req.ItemCode {
				req.ItemName = item.Name
				break
			}
		}
	}

	if err := s.api.SubmitTransfer(ctx, req); err != nil {
		return err
	}
	s.logAudit(ctx, "inventory_transfer", "item", req.ItemCode, fmt.Sprintf("qty=%d,from=%s,to=%s", req.Quantity, req.FromWarehouseName, req.ToWarehouseName))
	return nil
}

// OrderSummaries lists orders for the status table, optionally filtered by a
// case-insensitive match on order id or client name.
func (s *Service) OrderSummaries(ctx context.Context, search string) ([]domain.OrderSummary, error) {
	summaries, err := s.api.OrderSummaries(ctx)
	if err != nil {
		return nil, err
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return summaries, nil
	}
	filtered := make([]domain.OrderSummary, 0, len(summaries))
	for _, summary := range summaries {
		if strings.Contains(strings.ToLower(summary.OrderID), search) ||
			strings.Contains(strings.ToLower(summary.ClientName), search) {
			filtered = append(filtered, summary)
		}
	}
	return filtered, nil
}

// UpdateDeliveryStatus runs a status selection through the workflow engine.
// Non-Return statuses are written upstream; Return hands back a prefilled
// reconciliation without writing.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID string, req domain.StatusUpdateRequest) (workflow.Outcome, error) {
	outcome, err := s.workflow.SelectStatus(ctx, orderID, domain.DeliveryStatus(req.DeliveredStatus))
	if err != nil {
		return workflow.Outcome{}, err
	}
	if outcome.Applied != "" {
		s.logAudit(ctx, "delivery_status_update", "order", orderID, fmt.Sprintf("status=%s", outcome.Applied))
	}
	return outcome, nil
}

func (s *Service) SubmitReturn(ctx context.Context, orderID string, req domain.ReturnSubmitRequest) (domain.ReturnRequest, error) {
	accepted, err := s.workflow.SubmitReturn(ctx, orderID, req.Items)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	s.logAudit(ctx, "order_return", "order", orderID, fmt.Sprintf("lines=%d", len(accepted.Lines)))
	return accepted, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) mutateDraft(ctx context.Context, draftID string, mutate func(*domain.DraftOrder) error) (DraftView, error) {
	draft, err := s.repo.GetDraft(ctx, draftID)
	if err != nil {
		return DraftView{}, err
	}
	if err := mutate(draft); err != nil {
		return DraftView{}, err
	}
	updated, err := s.repo.UpdateDraft(ctx, *draft)
	if err != nil {
		return DraftView{}, err
	}
	return s.view(*updated), nil
}

func (s *Service) mutateLine(ctx context.Context, draftID string, index int, mutate func(domain.OrderLine) (domain.OrderLine, error)) (DraftView, error) {
	return s.mutateDraft(ctx, draftID, func(draft *domain.DraftOrder) error {
		if index < 0 || index >= len(draft.Lines) {
			return ErrLineOutOfRange
		}
		line, err := mutate(draft.Lines[index])
		if err != nil {
			return err
		}
		draft.Lines[index] = line
		return nil
	})
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
