package catalog

import (
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Seeder lo implementa el almacén en memoria.
type Seeder interface {
	AddWarehouse(w *entity.Warehouse) error
	AddProduct(p *entity.Product) error
	AddVariant(v *entity.Variant) error
}

// Seed registra bodegas, productos y variantes en ese orden.
func (c *Catalog) Seed(s Seeder) error {
	for _, w := range c.Warehouses {
		if err := s.AddWarehouse(w); err != nil {
			return fmt.Errorf("bodega %s: %w", w.ID, err)
		}
	}
	for _, p := range c.Products {
		if err := s.AddProduct(p); err != nil {
			return fmt.Errorf("producto %s: %w", p.ID, err)
		}
	}
	for _, v := range c.Variants {
		if err := s.AddVariant(v); err != nil {
			return fmt.Errorf("variante %s: %w", v.ID, err)
		}
	}
	return nil
}
