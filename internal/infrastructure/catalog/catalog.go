// Package catalog lee exportaciones CSV del catálogo (productos, variantes y bodegas)
// y las vuelca como script SQL o directamente en un almacén en memoria.
//
// Formato: separador ';', una fila por registro y la primera columna indica el tipo:
//
//	producto;ID;SKU;Nombre;Categoría;PrecioUnitario;NivelReorden;Perecedero(si|no);ConVencimiento(si|no)
//	variante;ID;ProductoID;Atributo;Valor;SKU;AjustePrecio
//	bodega;ID;Nombre;Dirección
//
// Las líneas vacías y las que empiezan por '#' se ignoran.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Catalog registros leídos de una exportación.
type Catalog struct {
	Products   []*entity.Product
	Variants   []*entity.Variant
	Warehouses []*entity.Warehouse
}

// Charsets aceptados por Read.
const (
	CharsetUTF8   = "utf-8"
	CharsetLatin1 = "iso-8859-1"
)

// Read decodifica la exportación. charset vacío equivale a UTF-8.
func Read(r io.Reader, charset string) (*Catalog, error) {
	switch strings.ToLower(charset) {
	case "", CharsetUTF8, "utf8":
	case CharsetLatin1, "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "windows-1252", "cp1252":
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return nil, fmt.Errorf("catalog: charset no soportado %q", charset)
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	c := &Catalog{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if err := c.add(rec); err != nil {
			return nil, fmt.Errorf("catalog: línea %d: %w", line, err)
		}
	}
	return c, c.validate()
}

func (c *Catalog) add(rec []string) error {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	switch strings.ToLower(rec[0]) {
	case "producto":
		if len(rec) < 7 {
			return fmt.Errorf("producto: se esperaban al menos 7 columnas, hay %d", len(rec))
		}
		price, err := decimal.NewFromString(orDefault(rec[5], "0"))
		if err != nil {
			return fmt.Errorf("precio %q: %w", rec[5], err)
		}
		reorder, err := strconv.ParseInt(orDefault(rec[6], "0"), 10, 64)
		if err != nil || reorder < 0 {
			return fmt.Errorf("nivel de reorden inválido %q", rec[6])
		}
		c.Products = append(c.Products, &entity.Product{
			ID:           rec[1],
			SKU:          rec[2],
			Name:         rec[3],
			Category:     rec[4],
			UnitPrice:    price,
			ReorderLevel: reorder,
			IsPerishable: flag(rec, 7),
			HasExpiry:    flag(rec, 8),
		})
	case "variante":
		if len(rec) < 5 {
			return fmt.Errorf("variante: se esperaban al menos 5 columnas, hay %d", len(rec))
		}
		v := &entity.Variant{ID: rec[1], ProductID: rec[2], AttributeName: rec[3], Value: rec[4]}
		if len(rec) > 5 {
			v.SKU = rec[5]
		}
		if len(rec) > 6 && rec[6] != "" {
			adj, err := decimal.NewFromString(rec[6])
			if err != nil {
				return fmt.Errorf("ajuste de precio %q: %w", rec[6], err)
			}
			v.PriceAdjustment = adj
		}
		c.Variants = append(c.Variants, v)
	case "bodega":
		if len(rec) < 3 {
			return fmt.Errorf("bodega: se esperaban al menos 3 columnas, hay %d", len(rec))
		}
		w := &entity.Warehouse{ID: rec[1], Name: rec[2], Active: true}
		if len(rec) > 3 {
			w.Address = rec[3]
		}
		c.Warehouses = append(c.Warehouses, w)
	default:
		return fmt.Errorf("tipo de registro desconocido %q", rec[0])
	}
	return nil
}

// validate exige IDs presentes y únicos, y que cada variante apunte a un producto del catálogo.
func (c *Catalog) validate() error {
	products := make(map[string]bool, len(c.Products))
	skus := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" || p.SKU == "" || p.Name == "" {
			return fmt.Errorf("catalog: producto %q sin id, sku o nombre", p.ID)
		}
		if products[p.ID] || skus[p.SKU] {
			return fmt.Errorf("catalog: producto duplicado %s (%s)", p.ID, p.SKU)
		}
		products[p.ID], skus[p.SKU] = true, true
	}
	variants := make(map[string]bool, len(c.Variants))
	for _, v := range c.Variants {
		if v.ID == "" || variants[v.ID] {
			return fmt.Errorf("catalog: variante vacía o duplicada %q", v.ID)
		}
		if !products[v.ProductID] {
			return fmt.Errorf("catalog: la variante %s apunta a un producto desconocido %q", v.ID, v.ProductID)
		}
		variants[v.ID] = true
	}
	warehouses := make(map[string]bool, len(c.Warehouses))
	for _, w := range c.Warehouses {
		if w.ID == "" || warehouses[w.ID] {
			return fmt.Errorf("catalog: bodega vacía o duplicada %q", w.ID)
		}
		warehouses[w.ID] = true
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func flag(rec []string, i int) bool {
	if i >= len(rec) {
		return false
	}
	switch strings.ToLower(rec[i]) {
	case "si", "sí", "s", "true", "1", "x":
		return true
	}
	return false
}
