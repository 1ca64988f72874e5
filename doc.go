// Package postgen is the host facade of the post authoring engine. An Engine
// wires the collaborator client, the schema store, the renderer, the
// validator, the variable resolver and the template orchestrator around a
// PlatformStore, so a host reads, edits, validates and applies templates to
// platform content through a single value.
//
// The packages under pkg/ remain usable on their own; Engine only fixes the
// wiring a typical host needs.
package postgen
