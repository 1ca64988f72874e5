package apply

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Default data source keys used when the targets block does not bind its
// sub-fields to a source.
const (
	RecipientsSource = "recipients"
	GroupsSource     = "groups"
)

// resolveNames fills TargetNames/GroupNames once, at apply time. Failures
// keep the raw identifiers and never touch templateLocale.
func (o *Orchestrator) resolveNames(ctx context.Context, platform string, field schema.Field, targets content.TargetsConfig) content.TargetsConfig {
	switch targets.Mode {
	case content.TargetModeIndividual:
		targets.TargetNames = append([]string(nil), targets.Individual...)
		if labels, ok := o.labels(ctx, platform, field, content.TargetsIndividualKey, RecipientsSource); ok {
			targets.TargetNames = mapNames(targets.Individual, labels)
		}
	case content.TargetModeGroups:
		targets.GroupNames = append([]string(nil), targets.Groups...)
		if labels, ok := o.labels(ctx, platform, field, content.TargetsGroupsKey, GroupsSource); ok {
			targets.GroupNames = mapNames(targets.Groups, labels)
		}
	case content.TargetModeAll:
		if opts, ok := o.fetchSource(ctx, platform, field, content.TargetsIndividualKey, RecipientsSource); ok {
			names := make([]string, 0, len(opts))
			for _, option := range opts {
				names = append(names, option.Label)
			}
			targets.TargetNames = names
		}
	}
	return targets
}

func (o *Orchestrator) labels(ctx context.Context, platform string, field schema.Field, key, fallbackSource string) (map[string]string, bool) {
	opts, ok := o.fetchSource(ctx, platform, field, key, fallbackSource)
	if !ok {
		return nil, false
	}
	return options.Labels(opts), true
}

func (o *Orchestrator) fetchSource(ctx context.Context, platform string, field schema.Field, key, fallbackSource string) ([]schema.Option, bool) {
	const op = "apply.resolve_names"
	source := fallbackSource
	if sub, ok := field.Schema[key]; ok && strings.TrimSpace(sub.Source) != "" {
		source = sub.Source
	}
	endpoint := strings.TrimSpace(field.DataEndpoints[source])

	var err error
	switch {
	case endpoint == "":
		err = failure.Configuration(op, "no data endpoint for source "+source)
	case o.names == nil:
		err = failure.Configuration(op, "name source is not configured")
	case options.NeedsPlatform(endpoint) && strings.TrimSpace(platform) == "":
		err = failure.Configuration(op, "endpoint "+endpoint+" needs a platform id")
	}
	var opts []schema.Option
	if err == nil {
		opts, err = o.names.FetchOptions(ctx, options.ExpandEndpoint(endpoint, platform), source, "")
	}
	if err != nil {
		o.metrics.nameFailures.Inc()
		o.logger.Warn("name resolution degraded to raw identifiers",
			slog.String("source", source),
			slog.String("error", failure.NameResolution(op, err).Error()),
		)
		return nil, false
	}
	return opts, true
}

func mapNames(ids []string, labels map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if label := labels[id]; label != "" {
			out = append(out, label)
			continue
		}
		out = append(out, id)
	}
	return out
}
