// Package docs documentación OpenAPI 2.0 de la API, servida en /docs.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string { return swaggerJSON }

func init() {
	swag.Register(swag.Name, openAPIDoc{})
}
