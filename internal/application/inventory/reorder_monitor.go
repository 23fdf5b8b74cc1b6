package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// StockLevel producto con su cantidad evaluada y su estado respecto al reorden.
type StockLevel struct {
	ProductID    string                `json:"product_id"`
	SKU          string                `json:"sku"`
	Name         string                `json:"name"`
	WarehouseID  string                `json:"warehouse_id,omitempty"`
	Quantity     int64                 `json:"quantity"`
	ReorderLevel int64                 `json:"reorder_level"`
	Status       domaininv.StockStatus `json:"status"`
}

// ExpiringBatch lote próximo a vencer.
type ExpiringBatch struct {
	BatchID     string    `json:"batch_id"`
	BatchNumber string    `json:"batch_number"`
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
	Quantity    int64     `json:"quantity"`
	ExpiryDate  time.Time `json:"expiry_date"`
	DaysLeft    int       `json:"days_left"`
}

// StockHealth resumen de salud de stock (bajo, agotado y por vencer) de una bodega o global.
type StockHealth struct {
	WarehouseID string          `json:"warehouse_id,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	LowStock    []StockLevel    `json:"low_stock"`
	OutOfStock  []StockLevel    `json:"out_of_stock"`
	Expiring    []ExpiringBatch `json:"expiring"`
}

// ReorderMonitor clasifica productos según su nivel de reorden. Nunca modifica cantidades.
// LowStock y OutOfStock leen siempre el estado confirmado; StockHealth puede servirse de caché,
// que se invalida tras cada commit (StockChanged).
type ReorderMonitor struct {
	products     repository.ProductRepository
	tracker      *BatchTracker
	cache        StockHealthCache
	ttl          time.Duration
	expiringDays int
	now          func() time.Time
	log          zerolog.Logger
}

// ReorderMonitorConfig parámetros del monitor.
type ReorderMonitorConfig struct {
	ExpiringDays int
	CacheTTL     time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time
}

// NewReorderMonitor construye el monitor. cache puede ser nil (sin caché).
func NewReorderMonitor(products repository.ProductRepository, tracker *BatchTracker, cache StockHealthCache, cfg ReorderMonitorConfig) *ReorderMonitor {
	m := &ReorderMonitor{
		products:     products,
		tracker:      tracker,
		cache:        cache,
		ttl:          cfg.CacheTTL,
		expiringDays: cfg.ExpiringDays,
		now:          cfg.Now,
		log:          cfg.Logger,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.expiringDays <= 0 {
		m.expiringDays = 30
	}
	return m
}

// LowStock productos con 0 < cantidad <= nivel de reorden (en warehouseID, o global si es vacío).
func (m *ReorderMonitor) LowStock(ctx context.Context, warehouseID string) ([]StockLevel, error) {
	return m.levels(ctx, warehouseID, domaininv.StockStatusLow)
}

// OutOfStock productos con cantidad <= 0.
func (m *ReorderMonitor) OutOfStock(ctx context.Context, warehouseID string) ([]StockLevel, error) {
	return m.levels(ctx, warehouseID, domaininv.StockStatusOutOfStock)
}

func (m *ReorderMonitor) levels(ctx context.Context, warehouseID string, want domaininv.StockStatus) ([]StockLevel, error) {
	rows, err := m.products.ListAtOrBelowReorder(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	out := []StockLevel{}
	for _, r := range rows {
		st := domaininv.ClassifyStock(r.Quantity, r.Product.ReorderLevel)
		if st != want {
			continue
		}
		out = append(out, StockLevel{
			ProductID:    r.Product.ID,
			SKU:          r.Product.SKU,
			Name:         r.Product.Name,
			WarehouseID:  warehouseID,
			Quantity:     r.Quantity,
			ReorderLevel: r.Product.ReorderLevel,
			Status:       st,
		})
	}
	return out, nil
}

func healthKey(warehouseID string) string {
	if warehouseID == "" {
		return "stock-health:global"
	}
	return "stock-health:" + warehouseID
}

// StockHealth devuelve bajo stock, agotados y lotes por vencer juntos. Un fallo de la caché
// no falla la consulta: se registra y se calcula en línea.
func (m *ReorderMonitor) StockHealth(ctx context.Context, warehouseID string) (*StockHealth, error) {
	key := healthKey(warehouseID)
	if m.cache != nil {
		cached, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			m.log.Warn().Err(err).Str("key", key).Msg("caché de salud de stock no disponible")
		} else if ok {
			return cached, nil
		}
	}

	low, err := m.LowStock(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	out, err := m.OutOfStock(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	batches, err := m.tracker.ListExpiring(ctx, m.expiringDays, now)
	if err != nil {
		return nil, err
	}
	h := &StockHealth{
		WarehouseID: warehouseID,
		GeneratedAt: now.UTC(),
		LowStock:    low,
		OutOfStock:  out,
		Expiring:    []ExpiringBatch{},
	}
	today := entity.StartOfDay(now)
	for _, b := range batches {
		if warehouseID != "" && b.WarehouseID != warehouseID {
			continue
		}
		h.Expiring = append(h.Expiring, ExpiringBatch{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			ProductID:   b.ProductID,
			WarehouseID: b.WarehouseID,
			Quantity:    b.Quantity,
			ExpiryDate:  b.ExpiryDate,
			DaysLeft:    int(entity.StartOfDay(b.ExpiryDate).Sub(today).Hours() / 24),
		})
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, h, m.ttl); err != nil {
			m.log.Warn().Err(err).Str("key", key).Msg("no se pudo guardar la salud de stock en caché")
		}
	}
	return h, nil
}

// StockChanged implementa StockChangeListener: descarta los resúmenes en caché.
func (m *ReorderMonitor) StockChanged(ctx context.Context, productIDs ...string) {
	if m.cache == nil || len(productIDs) == 0 {
		return
	}
	if err := m.cache.Invalidate(ctx); err != nil {
		m.log.Warn().Err(err).Strs("productos", productIDs).Msg("no se pudo invalidar la caché de salud de stock")
	}
}

// ReplenishmentList devuelve los productos en o bajo su punto de reorden con la cantidad sugerida
// de pedido (stock ideal = reorden × 1.5) y su valor estimado a precio de lista.
// warehouseID puede ser vacío para considerar el stock global.
func (m *ReorderMonitor) ReplenishmentList(ctx context.Context, warehouseID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	rows, err := m.products.ListAtOrBelowReorder(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	factor := decimal.NewFromFloat(1.5)
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(rows))
	for _, r := range rows {
		p := r.Product
		ideal := decimal.NewFromInt(p.ReorderLevel).Mul(factor).Ceil().IntPart()
		suggested := max(ideal-r.Quantity, 0)
		if suggested == 0 {
			continue
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:           p.ID,
			SKU:                 p.SKU,
			ProductName:         p.Name,
			WarehouseID:         warehouseID,
			Status:              string(domaininv.ClassifyStock(r.Quantity, p.ReorderLevel)),
			CurrentStock:        r.Quantity,
			ReorderPoint:        p.ReorderLevel,
			IdealStock:          ideal,
			SuggestedOrderQty:   suggested,
			UnitPrice:           p.UnitPrice,
			EstimatedOrderValue: p.UnitPrice.Mul(decimal.NewFromInt(suggested)),
		})
	}

	// Primero los agotados, luego mayor déficit respecto al reorden y, en empate, por SKU.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		aOut, bOut := a.CurrentStock <= 0, b.CurrentStock <= 0
		if aOut != bOut {
			return aOut
		}
		defA, defB := a.ReorderPoint-a.CurrentStock, b.ReorderPoint-b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.SKU < b.SKU
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
