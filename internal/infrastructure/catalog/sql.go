package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteSQL escribe un script idempotente (ON CONFLICT DO NOTHING) para las tablas de catálogo.
// Las cantidades no se siembran: el stock solo entra por movimientos del libro.
func (c *Catalog) WriteSQL(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- Catálogo: %d bodegas, %d productos, %d variantes\n\n", len(c.Warehouses), len(c.Products), len(c.Variants))

	if len(c.Warehouses) > 0 {
		bw.WriteString("INSERT INTO warehouses (id, name, address, active) VALUES\n")
		for i, wh := range c.Warehouses {
			fmt.Fprintf(bw, "  (%s, %s, %s, TRUE)%s\n", quote(wh.ID), quote(wh.Name), quote(wh.Address), sep(i, len(c.Warehouses)))
		}
		bw.WriteString("ON CONFLICT (id) DO NOTHING;\n\n")
	}
	if len(c.Products) > 0 {
		bw.WriteString("INSERT INTO products (id, sku, name, category, unit_price, reorder_level, is_perishable, has_expiry) VALUES\n")
		for i, p := range c.Products {
			fmt.Fprintf(bw, "  (%s, %s, %s, %s, %s, %d, %t, %t)%s\n",
				quote(p.ID), quote(p.SKU), quote(p.Name), quote(p.Category), p.UnitPrice.String(),
				p.ReorderLevel, p.IsPerishable, p.HasExpiry, sep(i, len(c.Products)))
		}
		bw.WriteString("ON CONFLICT (id) DO NOTHING;\n\n")
	}
	if len(c.Variants) > 0 {
		bw.WriteString("INSERT INTO product_variants (id, product_id, attribute_name, value, sku, price_adjustment) VALUES\n")
		for i, v := range c.Variants {
			fmt.Fprintf(bw, "  (%s, %s, %s, %s, %s, %s)%s\n",
				quote(v.ID), quote(v.ProductID), quote(v.AttributeName), quote(v.Value), quote(v.SKU),
				v.PriceAdjustment.String(), sep(i, len(c.Variants)))
		}
		bw.WriteString("ON CONFLICT (id) DO NOTHING;\n")
	}
	return bw.Flush()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sep(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}
