package domain

import "time"

// DeliveryStatus is the lifecycle tag of an order's fulfillment. The wire
// values match what the upstream order service stores.
type DeliveryStatus string

const (
	StatusPending        DeliveryStatus = "Pending"
	StatusDispatched     DeliveryStatus = "Dispatched"
	StatusFullyDelivered DeliveryStatus = "Fully Delivered"
	StatusReturn         DeliveryStatus = "Return"
)

// DeliveryStatuses lists every recognised status in display order.
var DeliveryStatuses = []DeliveryStatus{
	StatusPending,
	StatusDispatched,
	StatusFullyDelivered,
	StatusReturn,
}

func (s DeliveryStatus) Valid() bool {
	for _, known := range DeliveryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Item struct {
	Code string `json:"item_code"`
	Name string `json:"item_name"`
}

type Category struct {
	Name  string `json:"category_name"`
	Items []Item `json:"items"`
}

// StockEntry is one receiving batch of one item at one warehouse. A warehouse
// may hold several entries for the same item code (different batches).
type StockEntry struct {
	ItemCode           string `json:"item_code"`
	Quantity           int    `json:"quantity"`
	InwardReference    string `json:"inward_reference"`
	InwardShipmentMark string `json:"inward_shipment_mark"`
}

type Warehouse struct {
	ID    string       `json:"warehouse_id"`
	Name  string       `json:"warehouse_name"`
	Stock []StockEntry `json:"stock"`
}

type Client struct {
	ID            string `json:"client_id"`
	FirmName      string `json:"firm_name"`
	ContactPerson string `json:"contact_person"`
}

// OrderLine is one row of an order under composition: item, quantity, price,
// and the warehouse batch it ships from.
type OrderLine struct {
	CategoryName       string  `json:"category_name"`
	ItemName           string  `json:"item_name"`
	ItemCode           string  `json:"item_code"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	WarehouseID        string  `json:"warehouse_id"`
	InwardReference    string  `json:"inward_reference"`
	InwardShipmentMark string  `json:"inward_shipment_mark"`
}

type Order struct {
	ID             string         `json:"order_id"`
	ClientID       string         `json:"client_id"`
	Lines          []OrderLine    `json:"lines"`
	TaxRatePercent float64        `json:"tax_rate_percent"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
}

// OrderSummary is one row of the order-status table.
type OrderSummary struct {
	OrderID        string         `json:"order_id"`
	ClientName     string         `json:"client_name"`
	TotalAmount    float64        `json:"total_product_amount"`
	OrderStatus    string         `json:"order_status"`
	CreatedBy      string         `json:"created_by"`
	AssignedTo     string         `json:"assigned_to"`
	DeliveryStatus DeliveryStatus `json:"order_delivered_status"`
}

// ReturnLine splits one shipped line into defective and okay portions that
// must reconstruct the original quantity.
type ReturnLine struct {
	ItemCode          string `json:"item_code"`
	ItemName          string `json:"item_name"`
	CategoryName      string `json:"category_name"`
	OriginalQuantity  int    `json:"original_quantity"`
	DefectiveQuantity int    `json:"defective_quantity"`
	OkayQuantity      int    `json:"okay_quantity"`
}

// ReturnLineInput carries user-entered quantities. They arrive as strings from
// form fields; non-numeric input parses to 0 and fails the sum invariant.
type ReturnLineInput struct {
	ItemCode          string `json:"item_code"`
	ItemName          string `json:"item_name"`
	CategoryName      string `json:"category_name"`
	OriginalQuantity  int    `json:"original_quantity"`
	DefectiveQuantity string `json:"defective_quantity"`
	OkayQuantity      string `json:"okay_quantity"`
}

type ReturnRequest struct {
	OrderID string       `json:"order_id"`
	Lines   []ReturnLine `json:"items"`
}

// DraftOrder is an order composition in progress. Lines are edited in place
// through the cascading selectors and discarded on submit or discard.
type DraftOrder struct {
	ID             string      `json:"draft_id"`
	ClientID       string      `json:"client_id"`
	Lines          []OrderLine `json:"lines"`
	TaxRatePercent float64     `json:"tax_rate_percent"`
	CreatedBy      string      `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type DraftCreateRequest struct {
	ClientID string `json:"client_id"`
}

type LineQuantityRequest struct {
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

type SelectCategoryRequest struct {
	CategoryName string `json:"category_name"`
}

type SelectItemRequest struct {
	ItemName string `json:"item_name"`
}

type SelectWarehouseRequest struct {
	WarehouseID        string `json:"warehouse_id"`
	InwardReference    string `json:"inward_reference"`
	InwardShipmentMark string `json:"inward_shipment_mark"`
}

// TaxRateRequest carries the tax-rate field as typed by the user. Non-numeric
// input is coerced to zero rather than rejected; negative rates are rejected.
type TaxRateRequest struct {
	TaxRatePercent string `json:"tax_rate_percent"`
}

// TransferRequest moves stock of one item between two warehouses upstream.
type TransferRequest struct {
	Quantity          int    `json:"quantity"`
	FromWarehouseName string `json:"from_warehouse_name"`
	ToWarehouseName   string `json:"to_warehouse_name"`
	ItemCode          string `json:"item_code"`
	ItemName          string `json:"item_name"`
}

type StatusUpdateRequest struct {
	DeliveredStatus string `json:"delivered_status"`
}

type ReturnSubmitRequest struct {
	Items []ReturnLineInput `json:"items"`
}

type CreateOrderRequest struct {
	ClientID       string      `json:"client_id"`
	Items          []OrderLine `json:"items"`
	TaxRatePercent float64     `json:"tax_rate_percent"`
}

type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSummary is a user account without its credential, safe to list.
type UserSummary struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
