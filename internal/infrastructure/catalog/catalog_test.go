package catalog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

const sample = `# exportación de prueba
bodega;A;Bodega Central;Calle 1 # 2-3
bodega;B;Bodega Norte
producto;P1;SKU-1;Camiseta;Ropa;25000.50;5
producto;P2;SKU-2;Yogur;Lácteos;3200;10;si;si
variante;V1;P1;Talla;M;SKU-1-M;1000
`

func TestRead_UTF8(t *testing.T) {
	c, err := catalog.Read(strings.NewReader(sample), "")
	require.NoError(t, err)

	require.Len(t, c.Warehouses, 2)
	assert.Equal(t, "Calle 1 # 2-3", c.Warehouses[0].Address)
	assert.True(t, c.Warehouses[1].Active)

	require.Len(t, c.Products, 2)
	assert.Equal(t, "25000.5", c.Products[0].UnitPrice.String())
	assert.Equal(t, int64(5), c.Products[0].ReorderLevel)
	assert.False(t, c.Products[0].HasExpiry)
	assert.True(t, c.Products[1].IsPerishable)
	assert.True(t, c.Products[1].HasExpiry)
	assert.Equal(t, "Lácteos", c.Products[1].Category)

	require.Len(t, c.Variants, 1)
	assert.Equal(t, "1000", c.Variants[0].PriceAdjustment.String())
}

func TestRead_Latin1(t *testing.T) {
	// "Café" y "Bogotá" codificados en ISO-8859-1
	raw := []byte("bodega;A;Bogot\xe1\nproducto;P1;SKU-1;Caf\xe9;Bebidas;9000;3\n")
	c, err := catalog.Read(bytes.NewReader(raw), catalog.CharsetLatin1)
	require.NoError(t, err)
	assert.Equal(t, "Bogotá", c.Warehouses[0].Name)
	assert.Equal(t, "Café", c.Products[0].Name)
}

func TestRead_Errores(t *testing.T) {
	cases := map[string]string{
		"tipo desconocido":     "cliente;C1;Ana\n",
		"precio inválido":      "producto;P1;SKU;N;C;abc;1\n",
		"reorden negativo":     "producto;P1;SKU;N;C;1;-4\n",
		"sku duplicado":        "producto;P1;SKU;N;C;1;1\nproducto;P2;SKU;M;C;1;1\n",
		"variante huérfana":    "variante;V1;PX;Talla;M\n",
		"bodega duplicada":     "bodega;A;Uno\nbodega;A;Dos\n",
		"columnas incompletas": "producto;P1;SKU\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Read(strings.NewReader(in), "")
			assert.Error(t, err)
		})
	}

	_, err := catalog.Read(strings.NewReader(sample), "ebcdic")
	assert.Error(t, err)
}

func TestWriteSQL_EscapaComillas(t *testing.T) {
	c, err := catalog.Read(strings.NewReader("bodega;A;Bodega D'Luca\nproducto;P1;SKU-1;Pan;Panadería;1500;2\n"), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteSQL(&buf))
	sql := buf.String()
	assert.Contains(t, sql, "('A', 'Bodega D''Luca', '', TRUE)")
	assert.Contains(t, sql, "('P1', 'SKU-1', 'Pan', 'Panadería', 1500, 2, false, false)")
	assert.Equal(t, 2, strings.Count(sql, "ON CONFLICT (id) DO NOTHING;"))
	assert.NotContains(t, sql, "product_variants")
}

func TestSeed_AlmacenEnMemoria(t *testing.T) {
	c, err := catalog.Read(strings.NewReader(sample), "")
	require.NoError(t, err)

	store := memory.NewStore()
	require.NoError(t, c.Seed(store))

	p, err := store.Repos().Products.GetByID(t.Context(), "P2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Yogur", p.Name)

	list, err := store.Repos().Variants.ListByProduct(t.Context(), "P1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Sembrar dos veces choca con los duplicados del catálogo
	assert.Error(t, c.Seed(store))
}
