// issue_token emite un JWT de desarrollo para probar la API sin servicio de login.
//
// Uso: go run ./cmd/issue_token -role bodeguero -user u-1
// Lee JWT_SECRET, JWT_ISSUER y JWT_EXPIRATION_MINUTES de la misma configuración que la API.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

var roles = []string{"admin", "bodeguero", "vendedor"}

func main() {
	role := flag.String("role", "admin", "rol: admin, bodeguero o vendedor")
	user := flag.String("user", "dev-user", "user_id del token")
	company := flag.String("company", "", "company_id del token")
	flag.Parse()

	if !slices.Contains(roles, *role) {
		fmt.Fprintf(os.Stderr, "rol desconocido %q\n", *role)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, *user, *company, *role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
