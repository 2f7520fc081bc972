package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockdesk/backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, StaticToken("secret-token"))
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"categories":[]}`))
	})

	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestMissingTokenFailsBeforeSending(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, StaticToken(""))
	if _, err := client.Categories(context.Background()); err == nil {
		t.Fatalf("expected error for missing token")
	}
	if called {
		t.Fatalf("request must not be sent without a token")
	}
}

func TestCategoriesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"categories":[{"category_name":"Fasteners","items":[{"item_code":"FST-001","item_name":"Hex Bolt M8"}]}]}`))
	})

	categories, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || categories[0].Items[0].Code != "FST-001" {
		t.Fatalf("unexpected categories: %+v", categories)
	}
}

func TestClientsBareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"client_id":"C1","firm_name":"Acme Traders"}]`))
	})

	clients, err := client.Clients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clients) != 1 || clients[0].FirmName != "Acme Traders" {
		t.Fatalf("unexpected clients: %+v", clients)
	}
}

func TestOrderSummariesRejectsNonArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	})

	_, err := client.OrderSummaries(context.Background())
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestOrderSummariesArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"order_id":"ORD-1","client_name":"Acme","order_delivered_status":"Pending"}]`))
	})

	summaries, err := client.OrderSummaries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].DeliveryStatus != domain.StatusPending {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestUpdateDeliveryStatusPayload(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]json.RawMessage
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateDeliveryStatus(context.Background(), "ORD-5", domain.StatusDispatched, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/orders/ORD-5/delivery-status" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if string(gotBody["deliveredStatus"]) != `"Dispatched"` {
		t.Fatalf("unexpected payload: %v", gotBody)
	}
	if _, present := gotBody["items"]; present {
		t.Fatalf("items must be omitted for plain status updates")
	}
}

func TestUpdateDeliveryStatusWithReturnItems(t *testing.T) {
	var gotBody struct {
		DeliveredStatus string              `json:"deliveredStatus"`
		Items           []domain.ReturnLine `json:"items"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	})

	items := []domain.ReturnLine{{ItemCode: "A", OriginalQuantity: 5, DefectiveQuantity: 2, OkayQuantity: 3}}
	if err := client.UpdateDeliveryStatus(context.Background(), "ORD-5", domain.StatusReturn, items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody.DeliveredStatus != "Return" || len(gotBody.Items) != 1 || gotBody.Items[0].DefectiveQuantity != 2 {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
}

func TestNotFoundAndRejectedStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/orders/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.Order(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.Order(context.Background(), "other"); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestUnreachableServerMapsToUnavailable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", StaticToken("tok"))
	if _, err := client.WarehouseNames(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestContextCancellationStopsCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.WarehouseDetails(ctx); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
