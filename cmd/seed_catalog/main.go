// seed_catalog genera el script SQL de catálogo (bodegas, productos y variantes)
// a partir de una exportación CSV separada por ';'.
//
// Uso: go run ./cmd/seed_catalog [-charset iso-8859-1] [-out ruta.sql] catalogo.csv
// Por defecto escribe internal/infrastructure/postgres/seeds/catalog.sql.
// El script no toca cantidades: el stock inicial se carga con ajustes por la API.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
)

func main() {
	charset := flag.String("charset", catalog.CharsetUTF8, "codificación del CSV (utf-8, iso-8859-1, windows-1252)")
	outPath := flag.String("out", "", "archivo SQL de salida")
	flag.Parse()

	csvPath := "catalogo.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	c, err := catalog.Read(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	if *outPath == "" {
		*outPath = filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seeds", "catalog.sql")
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Crear directorio: %v\n", err)
		os.Exit(1)
	}
	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := c.WriteSQL(out); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d bodegas, %d productos, %d variantes\n",
		*outPath, len(c.Warehouses), len(c.Products), len(c.Variants))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
