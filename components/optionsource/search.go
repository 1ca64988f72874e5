package optionsource

import (
	"sort"
	"strings"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// Search filters opts by a case-insensitive substring match on label or
// value. Prefix matches sort first, then labels alphabetically.
func Search(opts []schema.Option, query string, limit int, options Options) []schema.Option {
	limit = clampLimit(limit, options)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if options.EmptySearchMode == EmptySearchTop {
			if len(opts) <= limit {
				return append([]schema.Option{}, opts...)
			}
			return append([]schema.Option{}, opts[:limit]...)
		}
		return nil
	}

	q := strings.ToLower(query)
	matches := make([]matchedOption, 0, 16)
	for _, opt := range opts {
		label := strings.ToLower(opt.Label)
		value := strings.ToLower(opt.Value)
		if !strings.Contains(label, q) && !strings.Contains(value, q) {
			continue
		}
		matches = append(matches, matchedOption{
			option:   opt,
			isPrefix: strings.HasPrefix(label, q) || strings.HasPrefix(value, q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].option.Label < matches[j].option.Label
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]schema.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matchedOption struct {
	option   schema.Option
	isPrefix bool
}
