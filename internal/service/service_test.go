package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockdesk/backend/internal/domain"
	"stockdesk/backend/internal/refdata"
	"stockdesk/backend/internal/store"
	"stockdesk/backend/internal/store/memory"
)

type fakeUpstream struct {
	createdOrders  []domain.CreateOrderRequest
	transfers      []domain.TransferRequest
	summaries      []domain.OrderSummary
	summariesErr   error
	order          domain.Order
	statusWrites   []domain.DeliveryStatus
	statusWriteErr error
}

func (f *fakeUpstream) Categories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{
		{Name: "Fasteners", Items: []domain.Item{
			{Code: "FST-001", Name: "Hex Bolt M8"},
			{Code: "FST-002", Name: "Wing Nut M8"},
		}},
	}, nil
}

func (f *fakeUpstream) WarehouseNames(ctx context.Context) ([]string, error) {
	return []string{"North", "South"}, nil
}

func (f *fakeUpstream) WarehouseDetails(ctx context.Context) ([]domain.Warehouse, error) {
	return []domain.Warehouse{
		{ID: "W1", Name: "North", Stock: []domain.StockEntry{
			{ItemCode: "FST-001", Quantity: 40, InwardReference: "R1"},
		}},
		{ID: "W2", Name: "South", Stock: []domain.StockEntry{
			{ItemCode: "FST-001", Quantity: 15, InwardReference: "R2"},
		}},
	}, nil
}

func (f *fakeUpstream) Clients(ctx context.Context) ([]domain.Client, error) {
	return []domain.Client{{ID: "C1", FirmName: "Acme Traders"}}, nil
}

func (f *fakeUpstream) InventoryItems(ctx context.Context) ([]domain.Item, error) {
	return []domain.Item{{Code: "FST-001", Name: "Hex Bolt M8"}}, nil
}

func (f *fakeUpstream) SubmitTransfer(ctx context.Context, transfer domain.TransferRequest) error {
	f.transfers = append(f.transfers, transfer)
	return nil
}

func (f *fakeUpstream) CreateOrder(ctx context.Context, order domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	f.createdOrders = append(f.createdOrders, order)
	return domain.CreateOrderResponse{OrderID: "ORD-100"}, nil
}

func (f *fakeUpstream) OrderSummaries(ctx context.Context) ([]domain.OrderSummary, error) {
	if f.summariesErr != nil {
		return nil, f.summariesErr
	}
	return f.summaries, nil
}

func (f *fakeUpstream) Order(ctx context.Context, orderID string) (domain.Order, error) {
	return f.order, nil
}

func (f *fakeUpstream) UpdateDeliveryStatus(ctx context.Context, orderID string, status domain.DeliveryStatus, items []domain.ReturnLine) error {
	if f.statusWriteErr != nil {
		return f.statusWriteErr
	}
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

func newTestService(api *fakeUpstream) *Service {
	loader := refdata.NewLoader(api, refdata.NoopSnapshotCache{}, time.Minute)
	return New(memory.NewSeeded(), api, loader)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func salesCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "sales", Role: "sales"})
}

func TestCreateDraftRequiresActor(t *testing.T) {
	svc := newTestService(&fakeUpstream{})
	if _, err := svc.CreateDraft(context.Background(), domain.DraftCreateRequest{}); err == nil {
		t.Fatalf("anonymous draft creation must fail")
	}
}

func TestDraftCascadeAndTotals(t *testing.T) {
	svc := newTestService(&fakeUpstream{})
	ctx := adminCtx()

	view, err := svc.CreateDraft(ctx, domain.DraftCreateRequest{ClientID: "C1"})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	draftID := view.Draft.ID
	if len(view.Draft.Lines) != 1 || view.Draft.Lines[0].Quantity != 1 {
		t.Fatalf("new draft must start with one empty line: %+v", view.Draft.Lines)
	}

	view, err = svc.SelectLineCategory(ctx, draftID, 0, "Fasteners")
	if err != nil {
		t.Fatalf("select category: %v", err)
	}

	view, err = svc.SelectLineItem(ctx, draftID, 0, "Hex Bolt M8")
	if err != nil {
		t.Fatalf("select item: %v", err)
	}
	if view.Draft.Lines[0].ItemCode != "FST-001" {
		t.Fatalf("item code not resolved: %+v", view.Draft.Lines[0])
	}

	options, err := svc.WarehouseOptions(ctx, draftID, 0)
	if err != nil {
		t.Fatalf("warehouse options: %v", err)
	}
	if len(options) != 2 || options[0].WarehouseID != "W1" {
		t.Fatalf("unexpected warehouse options: %+v", options)
	}

	view, err = svc.SelectLineWarehouse(ctx, draftID, 0, domain.SelectWarehouseRequest{
		WarehouseID: "W1", InwardReference: "R1",
	})
	if err != nil {
		t.Fatalf("select warehouse: %v", err)
	}

	qty := 4
	price := 2.5
	view, err = svc.UpdateLineQuantity(ctx, draftID, 0, domain.LineQuantityRequest{Quantity: &qty, UnitPrice: &price})
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}

	view, err = svc.SetTaxRate(ctx, draftID, "10")
	if err != nil {
		t.Fatalf("set tax rate: %v", err)
	}
	if view.Totals.SubtotalDisplay != "10.00" || view.Totals.GrandTotalDisplay != "11.00" {
		t.Fatalf("unexpected totals: %+v", view.Totals)
	}
}

func TestSetTaxRateRejectsNegative(t *testing.T) {
	svc := newTestService(&fakeUpstream{})
	ctx := adminCtx()
	view, _ := svc.CreateDraft(ctx, domain.DraftCreateRequest{ClientID: "C1"})

	if _, err := svc.SetTaxRate(ctx, view.Draft.ID, "-5"); !errors.Is(err, ErrNegativeTax) {
		t.Fatalf("expected ErrNegativeTax, got %v", err)
	}

	// Non-numeric input coerces to zero instead of failing.
	updated, err := svc.SetTaxRate(ctx, view.Draft.ID, "abc")
	if err != nil {
		t.Fatalf("non-numeric rate should coerce: %v", err)
	}
	if updated.Draft.TaxRatePercent != 0 {
		t.Fatalf("expected rate 0, got %v", updated.Draft.TaxRatePercent)
	}
}

func TestSubmitDraftRejectsIncompleteLines(t *testing.T) {
	api := &fakeUpstream{}
	svc := newTestService(api)
	ctx := adminCtx()
	view, _ := svc.CreateDraft(ctx, domain.DraftCreateRequest{ClientID: "C1"})

	if _, err := svc.SubmitDraft(ctx, view.Draft.ID); !errors.Is(err, ErrLineIncomplete) {
		t.Fatalf("expected ErrLineIncomplete, got %v", err)
	}
	if len(api.createdOrders) != 0 {
		t.Fatalf("incomplete draft must not reach upstream")
	}
}

func TestSubmitDraftCreatesOrderAndDeletesDraft(t *testing.T) {
	api := &fakeUpstream{}
	svc := newTestService(api)
	ctx := adminCtx()

	view, _ := svc.CreateDraft(ctx, domain.DraftCreateRequest{ClientID: "C1"})
	draftID := view.Draft.ID
	_, _ = svc.SelectLineCategory(ctx, draftID, 0, "Fasteners")
	_, _ = svc.SelectLineItem(ctx, draftID, 0, "Hex Bolt M8")
	_, _ = svc.SelectLineWarehouse(ctx, draftID, 0, domain.SelectWarehouseRequest{WarehouseID: "W1", InwardReference: "R1"})

	created, err := svc.SubmitDraft(ctx, draftID)
	if err != nil {
		t.Fatalf("submit draft: %v", err)
	}
	if created.OrderID != "ORD-100" || len(api.createdOrders) != 1 {
		t.Fatalf("order not created upstream: %+v", created)
	}
	if _, err := svc.GetDraft(ctx, draftID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("submitted draft must be deleted, got %v", err)
	}
}

func TestTransferInventory(t *testing.T) {
	api := &fakeUpstream{}
	svc := newTestService(api)

	req := domain.TransferRequest{Quantity: 5, FromWarehouseName: "North", ToWarehouseName: "South", ItemCode: "FST-001"}
	if err := svc.TransferInventory(salesCtx(), req); err == nil {
		t.Fatalf("transfer must require admin role")
	}

	if err := svc.TransferInventory(adminCtx(), req); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(api.transfers) != 1 || api.transfers[0].ItemName != "Hex Bolt M8" {
		t.Fatalf("item name should resolve from the snapshot: %+v", api.transfers)
	}

	bad := req
	bad.ToWarehouseName = "North"
	if err := svc.TransferInventory(adminCtx(), bad); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("same-warehouse transfer must fail, got %v", err)
	}
}

func TestOrderSummariesSearch(t *testing.T) {
	api := &fakeUpstream{summaries: []domain.OrderSummary{
		{OrderID: "ORD-1", ClientName: "Acme Traders"},
		{OrderID: "ORD-2", ClientName: "Borealis Ltd"},
	}}
	svc := newTestService(api)

	all, err := svc.OrderSummaries(adminCtx(), "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 summaries, got %v %v", all, err)
	}

	matched, err := svc.OrderSummaries(adminCtx(), "acme")
	if err != nil || len(matched) != 1 || matched[0].OrderID != "ORD-1" {
		t.Fatalf("search should match client name: %v %v", matched, err)
	}
}

func TestUpdateDeliveryStatusAndReturnFlow(t *testing.T) {
	api := &fakeUpstream{order: domain.Order{
		ID:    "ORD-5",
		Lines: []domain.OrderLine{{ItemCode: "FST-001", Quantity: 8}},
	}}
	svc := newTestService(api)
	ctx := adminCtx()

	outcome, err := svc.UpdateDeliveryStatus(ctx, "ORD-5", domain.StatusUpdateRequest{DeliveredStatus: "Dispatched"})
	if err != nil || outcome.Applied != domain.StatusDispatched {
		t.Fatalf("dispatch failed: %v %+v", err, outcome)
	}

	outcome, err = svc.UpdateDeliveryStatus(ctx, "ORD-5", domain.StatusUpdateRequest{DeliveredStatus: "Return"})
	if err != nil {
		t.Fatalf("return selection failed: %v", err)
	}
	if outcome.PendingReturn == nil || outcome.PendingReturn.Lines[0].OkayQuantity != 8 {
		t.Fatalf("expected prefilled return, got %+v", outcome)
	}
	if len(api.statusWrites) != 1 {
		t.Fatalf("selecting Return must not write a status")
	}

	accepted, err := svc.SubmitReturn(ctx, "ORD-5", domain.ReturnSubmitRequest{Items: []domain.ReturnLineInput{
		{ItemCode: "FST-001", OriginalQuantity: 8, DefectiveQuantity: "3", OkayQuantity: "5"},
	}})
	if err != nil {
		t.Fatalf("submit return: %v", err)
	}
	if accepted.Lines[0].DefectiveQuantity != 3 {
		t.Fatalf("unexpected accepted return: %+v", accepted)
	}
	if len(api.statusWrites) != 2 || api.statusWrites[1] != domain.StatusReturn {
		t.Fatalf("return submission must write the Return status: %v", api.statusWrites)
	}
}

func TestListAuditLogsAdminOnly(t *testing.T) {
	svc := newTestService(&fakeUpstream{})

	view, _ := svc.CreateDraft(adminCtx(), domain.DraftCreateRequest{ClientID: "C1"})
	if view.Draft.ID == "" {
		t.Fatalf("draft creation failed")
	}

	if _, err := svc.ListAuditLogs(salesCtx(), 10); err == nil {
		t.Fatalf("audit log listing must require admin role")
	}

	logs, err := svc.ListAuditLogs(adminCtx(), 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) == 0 || logs[0].Action != "draft_create" {
		t.Fatalf("expected draft_create audit entry, got %+v", logs)
	}
}
