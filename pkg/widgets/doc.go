// Package widgets resolves presentation widget names for schema fields.
package widgets
