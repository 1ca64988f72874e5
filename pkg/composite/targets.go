package composite

import (
	"context"
	"strings"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// SelectionView splits a multiselect sub-field into removable chips for the
// selected options and a selectable list for the rest.
type SelectionView struct {
	Key       string          `json:"key"`
	Chips     []schema.Option `json:"chips"`
	Available []schema.Option `json:"available"`
}

// Selection returns the chip view for a multiselect sub-field. Selected ids
// missing from the option list render with the id as label.
func (c *Controller) Selection(key string) SelectionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := c.subOptionsLocked(key)
	selected := content.Strings(c.local[key])
	labels := options.Labels(opts)

	view := SelectionView{Key: key, Chips: []schema.Option{}, Available: []schema.Option{}}
	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
		label := labels[id]
		if label == "" {
			label = id
		}
		view.Chips = append(view.Chips, schema.Option{Label: label, Value: id})
	}
	for _, option := range opts {
		if _, ok := chosen[option.Value]; ok {
			continue
		}
		view.Available = append(view.Available, option)
	}
	return view
}

// Toggle adds value to the selection of key or removes it when present.
func (c *Controller) Toggle(key, value string) map[string]any {
	for _, id := range content.Strings(c.Value()[key]) {
		if id == value {
			return c.Remove(key, value)
		}
	}
	return c.selectValue(key, value)
}

// Remove drops value from the selection of key.
func (c *Controller) Remove(key, value string) map[string]any {
	current := content.Strings(c.Value()[key])
	kept := make([]string, 0, len(current))
	for _, id := range current {
		if id != value {
			kept = append(kept, id)
		}
	}
	return c.Set(key, kept)
}

func (c *Controller) selectValue(key, value string) map[string]any {
	current := content.Strings(c.Value()[key])
	for _, id := range current {
		if id == value {
			return c.Value()
		}
	}
	return c.Set(key, append(current, value))
}

// AddTarget handles free-text entry for a multiselect sub-field. Text that
// matches a known option by value or label selects it. Unknown text is first
// registered through a POST to the sub-field's source endpoint; if that
// fails the selection is left unchanged and the error carries the server's
// message.
func (c *Controller) AddTarget(ctx context.Context, key, text string) (map[string]any, error) {
	const op = "composite.add_target"
	text = strings.TrimSpace(text)
	if text == "" {
		return c.Value(), nil
	}

	sub, ok := c.field.Schema[key]
	if !ok {
		return nil, failure.Configuration(op, "unknown sub-field "+key)
	}

	c.mu.Lock()
	known := c.subOptionsLocked(key)
	platform := c.platformID
	c.mu.Unlock()

	if match, found := options.Find(known, text); found {
		return c.selectValue(key, match.Value), nil
	}

	template := strings.TrimSpace(c.field.DataEndpoints[sub.Source])
	if template == "" {
		return nil, failure.Configuration(op, "sub-field "+key+" has no data endpoint for source "+sub.Source)
	}
	if options.NeedsPlatform(template) && platform == "" {
		return nil, failure.Configuration(op, "endpoint "+template+" needs a platform id")
	}
	if c.fetcher == nil {
		return nil, failure.Configuration(op, "fetcher is not configured")
	}
	if err := c.fetcher.RegisterTarget(ctx, options.ExpandEndpoint(template, platform), key, text); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if sub.Source != "" {
		c.options[sub.Source] = append(c.options[sub.Source], schema.Option{Label: text, Value: text})
	}
	c.mu.Unlock()
	return c.selectValue(key, text), nil
}
