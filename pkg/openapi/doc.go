// Package openapi imports platform schema sections from OpenAPI documents.
// Each operation's request body becomes a list of editable fields so a
// backend that already describes its post payloads in OpenAPI does not need
// a second, hand-written schema. kin-openapi types stay inside this package.
package openapi
