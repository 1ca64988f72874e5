// Package schema holds the passive platform schema model: fields and their
// closed type set, field groups, composite blocks with their data endpoints,
// and template variable definitions. Documents can be decoded from JSON,
// JSONC or YAML; Lint reports configuration issues without failing.
package schema
