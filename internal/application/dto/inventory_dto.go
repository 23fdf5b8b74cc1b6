package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScopeDTO alcance de una cantidad: producto, variante, (producto, bodega) o lote.
type ScopeDTO struct {
	ProductID   string `json:"product_id,omitempty" query:"product_id"`
	VariantID   string `json:"variant_id,omitempty" query:"variant_id"`
	WarehouseID string `json:"warehouse_id,omitempty" query:"warehouse_id"`
	BatchID     string `json:"batch_id,omitempty" query:"batch_id"`
}

// AdjustStockRequest body para POST /api/inventory/adjustments.
// Delta (con signo) o NewQuantity (absoluta), no ambos.
type AdjustStockRequest struct {
	ScopeDTO
	Delta           *int64 `json:"delta,omitempty"`
	NewQuantity     *int64 `json:"new_quantity,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// TransferStockRequest body para POST /api/inventory/transfers.
// Par de bodegas (con product_id) o par de lotes.
type TransferStockRequest struct {
	ProductID         string `json:"product_id,omitempty"`
	SourceWarehouseID string `json:"source_warehouse_id,omitempty"`
	TargetWarehouseID string `json:"target_warehouse_id,omitempty"`
	SourceBatchID     string `json:"source_batch_id,omitempty"`
	TargetBatchID     string `json:"target_batch_id,omitempty"`
	Quantity          int64  `json:"quantity"`
	ReferenceNumber   string `json:"reference_number,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// ReceiveBatchRequest body para POST /api/inventory/batches.
// Fechas en formato YYYY-MM-DD.
type ReceiveBatchRequest struct {
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id,omitempty"`
	WarehouseID       string `json:"warehouse_id,omitempty"`
	BatchNumber       string `json:"batch_number"`
	Quantity          int64  `json:"quantity"`
	ManufacturingDate string `json:"manufacturing_date,omitempty"`
	ExpiryDate        string `json:"expiry_date"`
	ReferenceNumber   string `json:"reference_number,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// ConsumeStockRequest body para POST /api/inventory/consumptions (FEFO).
type ConsumeStockRequest struct {
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id,omitempty"`
	Quantity        int64  `json:"quantity"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ScopeQuantityDTO cantidad resultante de un alcance.
type ScopeQuantityDTO struct {
	ScopeDTO
	Quantity int64 `json:"quantity"`
}

// StockOperationResponse resultado de una operación confirmada.
type StockOperationResponse struct {
	TransactionID   string             `json:"transaction_id"`
	ProductQuantity int64              `json:"product_quantity"`
	Quantities      []ScopeQuantityDTO `json:"quantities"`
	Movements       []StockMovementDTO `json:"movements"`
}

// QuantityResponse respuesta de GET /api/inventory/quantity.
type QuantityResponse struct {
	ScopeDTO
	Quantity int64 `json:"quantity"`
}

// StockMovementDTO entrada del libro de movimientos.
type StockMovementDTO struct {
	ID                string    `json:"id"`
	Sequence          int64     `json:"sequence"`
	TransactionID     string    `json:"transaction_id,omitempty"`
	ProductID         string    `json:"product_id"`
	VariantID         string    `json:"variant_id,omitempty"`
	WarehouseID       string    `json:"warehouse_id,omitempty"`
	BatchID           string    `json:"batch_id,omitempty"`
	MovementType      string    `json:"movement_type"`
	Quantity          int64     `json:"quantity"`
	ReferenceNumber   string    `json:"reference_number,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	SourceWarehouseID string    `json:"source_warehouse_id,omitempty"`
	TargetWarehouseID string    `json:"target_warehouse_id,omitempty"`
	SourceBatchID     string    `json:"source_batch_id,omitempty"`
	TargetBatchID     string    `json:"target_batch_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	CreatedBy         string    `json:"created_by,omitempty"`
}

// MovementQueryRequest parámetros de GET /api/inventory/movements.
// Types separado por comas; From/To en RFC3339 o YYYY-MM-DD; Order asc|desc.
type MovementQueryRequest struct {
	ScopeDTO
	Types           string `query:"types"`
	ReferenceNumber string `query:"reference_number"`
	From            string `query:"from"`
	To              string `query:"to"`
	Order           string `query:"order"`
	Limit           int    `query:"limit"`
}

// MovementListResponse lista de movimientos.
type MovementListResponse struct {
	Items []StockMovementDTO `json:"items"`
	Count int                `json:"count"`
}

// BatchDTO lote en respuestas.
type BatchDTO struct {
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	VariantID         string     `json:"variant_id,omitempty"`
	WarehouseID       string     `json:"warehouse_id,omitempty"`
	BatchNumber       string     `json:"batch_number"`
	Quantity          int64      `json:"quantity"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	ExpiryDate        time.Time  `json:"expiry_date"`
}

// ReconciliationDTO resultado de conciliar un producto contra su libro.
type ReconciliationDTO struct {
	ProductID      string          `json:"product_id"`
	Movements      int             `json:"movements"`
	CachedQuantity int64           `json:"cached_quantity"`
	ReplayQuantity int64           `json:"replay_quantity"`
	Consistent     bool            `json:"consistent"`
	Drifts         []ScopeDriftDTO `json:"drifts"`
}

// ScopeDriftDTO diferencia entre el contador guardado y el reconstruido desde el libro.
type ScopeDriftDTO struct {
	Scope    string `json:"scope"`
	Stored   int64  `json:"stored"`
	Replayed int64  `json:"replayed"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un SKU
// que se encuentra en o por debajo de su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	ProductID           string          `json:"product_id"`
	SKU                 string          `json:"sku"`
	ProductName         string          `json:"product_name"`
	WarehouseID         string          `json:"warehouse_id,omitempty"`
	Status              string          `json:"status"` // low|out_of_stock
	CurrentStock        int64           `json:"current_stock"`
	ReorderPoint        int64           `json:"reorder_point"`
	IdealStock          int64           `json:"ideal_stock"`           // ReorderPoint * 1.5 (redondeo hacia arriba)
	SuggestedOrderQty   int64           `json:"suggested_order_qty"`   // IdealStock - CurrentStock
	UnitPrice           decimal.Decimal `json:"unit_price"`
	EstimatedOrderValue decimal.Decimal `json:"estimated_order_value"` // SuggestedOrderQty * UnitPrice
	Priority            int             `json:"priority"`              // 1 = más urgente
}
