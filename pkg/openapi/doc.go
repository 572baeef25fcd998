// Package openapi scaffolds form sections from the request body schema of an
// OpenAPI 3 operation. Documents are read from files, an fs.FS, or (opt-in)
// HTTP, and parsed with kin-openapi.
package openapi
