// Package apispec holds the OpenAPI description of the marketplace API.
package apispec

import _ "embed"

// Document is the OpenAPI 3 document served by the reference API.
//
//go:embed openapi.yaml
var Document []byte
