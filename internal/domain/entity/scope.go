package entity

import "strings"

// Scope identifica el contador contra el que se mide una cantidad:
// {ProductID}, {VariantID}, {ProductID, WarehouseID} o {BatchID}.
// Los campos vacíos significan "no aplica".
type Scope struct {
	ProductID   string `json:"product_id,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	BatchID     string `json:"batch_id,omitempty"`
}

// ProductScope alcance de producto completo.
func ProductScope(productID string) Scope { return Scope{ProductID: productID} }

// WarehouseScope alcance (producto, bodega).
func WarehouseScope(productID, warehouseID string) Scope {
	return Scope{ProductID: productID, WarehouseID: warehouseID}
}

// VariantScope alcance de variante.
func VariantScope(productID, variantID string) Scope {
	return Scope{ProductID: productID, VariantID: variantID}
}

// BatchScope alcance de lote.
func BatchScope(productID, batchID string) Scope {
	return Scope{ProductID: productID, BatchID: batchID}
}

// IsZero indica que no se indicó ningún identificador.
func (s Scope) IsZero() bool {
	return s.ProductID == "" && s.VariantID == "" && s.WarehouseID == "" && s.BatchID == ""
}

// Leaf normaliza el alcance a la clave de su contador hoja: un lote se identifica solo por
// (producto, lote); una variante por (producto, variante); el resto por (producto, bodega).
func (s Scope) Leaf() Scope {
	switch {
	case s.BatchID != "":
		return Scope{ProductID: s.ProductID, BatchID: s.BatchID}
	case s.VariantID != "":
		return Scope{ProductID: s.ProductID, VariantID: s.VariantID}
	default:
		return Scope{ProductID: s.ProductID, WarehouseID: s.WarehouseID}
	}
}

// Key clave estable, usada en mensajes de error y mapas.
func (s Scope) Key() string {
	var b strings.Builder
	b.WriteString("product=")
	b.WriteString(s.ProductID)
	if s.VariantID != "" {
		b.WriteString("/variant=")
		b.WriteString(s.VariantID)
	}
	if s.WarehouseID != "" {
		b.WriteString("/warehouse=")
		b.WriteString(s.WarehouseID)
	}
	if s.BatchID != "" {
		b.WriteString("/batch=")
		b.WriteString(s.BatchID)
	}
	return b.String()
}

func (s Scope) String() string { return s.Key() }
