package inventory

// StockStatus salud del stock respecto al nivel de reorden.
type StockStatus string

const (
	StockStatusOK         StockStatus = "ok"
	StockStatusLow        StockStatus = "low"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// ClassifyStock: sin stock si quantity <= 0; bajo si 0 < quantity <= reorderLevel.
func ClassifyStock(quantity, reorderLevel int64) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity <= reorderLevel:
		return StockStatusLow
	default:
		return StockStatusOK
	}
}
