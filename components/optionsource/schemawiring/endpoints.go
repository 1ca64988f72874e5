// Package schemawiring points schema data endpoints at an optionsource
// component.
package schemawiring

import (
	"strings"

	"github.com/goliatone/go-postgen/components/optionsource"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Endpoint returns the data endpoint template serving source under basePath.
// Shared sources omit the platform segment; the others carry ":platformId"
// so composite fields substitute the active platform.
func Endpoint(basePath, source string, shared bool) string {
	if shared {
		return optionsource.MountPath(basePath, optionsource.WithRoutePath("/"+source))
	}
	return optionsource.MountPath(basePath, optionsource.WithRoutePath("/platforms/:platformId/"+source))
}

// CompleteEndpoints fills in missing dataEndpoints of every composite field
// so each sub-field source resolves against the component. Existing entries
// are kept. The input section is not modified.
func CompleteEndpoints(section schema.Section, basePath string, shared ...string) schema.Section {
	isShared := make(map[string]struct{}, len(shared))
	for _, source := range shared {
		isShared[strings.TrimSpace(source)] = struct{}{}
	}

	out := section
	out.Fields = make([]schema.Field, len(section.Fields))
	for i, field := range section.Fields {
		out.Fields[i] = field
		if !field.Type.IsComposite() || len(field.Schema) == 0 {
			continue
		}
		endpoints := make(map[string]string, len(field.DataEndpoints))
		for key, value := range field.DataEndpoints {
			endpoints[key] = value
		}
		for _, key := range field.SubFieldKeys() {
			source := strings.TrimSpace(field.Schema[key].Source)
			if source == "" {
				continue
			}
			if _, ok := endpoints[source]; ok {
				continue
			}
			_, sharedSource := isShared[source]
			endpoints[source] = Endpoint(basePath, source, sharedSource)
		}
		out.Fields[i].DataEndpoints = endpoints
	}
	return out
}
