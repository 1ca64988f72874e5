package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-postgen/pkg/failure"
	"github.com/goliatone/go-postgen/pkg/host"
	"github.com/goliatone/go-postgen/pkg/options"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// FetchSchema loads the platform schema from GET /platforms/:id/schema.
func (c *Client) FetchSchema(ctx context.Context, platformID string) (schema.PlatformSchema, error) {
	const op = "client.fetch_schema"
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return schema.PlatformSchema{}, failure.Configuration(op, "platform id is required")
	}

	body, err := c.do(ctx, "GET", "/platforms/"+url.PathEscape(platformID)+"/schema", nil)
	if err != nil {
		return schema.PlatformSchema{}, networkError(op, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.failed() {
		return schema.PlatformSchema{}, &failure.Error{Kind: failure.KindNetwork, Op: op, Message: env.text()}
	}

	decoded, err := schema.DecodePlatform(body)
	if err != nil {
		return schema.PlatformSchema{}, failure.Network(op, err)
	}
	if decoded.Platform == "" {
		decoded.Platform = platformID
	}
	return decoded, nil
}

// FetchOptions loads and normalises the option list behind an expanded
// endpoint. sourceKey names the array key some endpoints use instead of
// "options"; path is an optional dotted extraction path.
func (c *Client) FetchOptions(ctx context.Context, endpoint, sourceKey, path string) ([]schema.Option, error) {
	const op = "client.fetch_options"
	body, err := c.do(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, networkError(op, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.failed() {
		return nil, &failure.Error{Kind: failure.KindNetwork, Op: op, Message: env.text()}
	}
	opts, err := options.Decode(body, sourceKey, path)
	if err != nil {
		return nil, failure.Network(op, err)
	}
	return opts, nil
}

// RegisterTarget POSTs {fieldName: value} to an expanded endpoint so a free
// text entry becomes a known option. The server error text is preserved.
func (c *Client) RegisterTarget(ctx context.Context, endpoint, fieldName, value string) error {
	const op = "client.register_target"
	if strings.TrimSpace(fieldName) == "" {
		return failure.Configuration(op, "field name is required")
	}
	body, err := c.do(ctx, "POST", endpoint, map[string]string{fieldName: value})
	if err != nil {
		return networkError(op, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.failed() {
		return &failure.Error{Kind: failure.KindNetwork, Op: op, Message: env.text()}
	}
	return nil
}

// ApplyRequest is the payload posted to the template apply service.
type ApplyRequest struct {
	TemplateID       string         `json:"templateId"`
	ParsedData       map[string]any `json:"parsedData"`
	UploadedFileRefs []host.FileRef `json:"uploadedFileRefs"`
	ExistingContent  map[string]any `json:"existingContent"`
}

type applyResponse struct {
	Success bool           `json:"success"`
	Content map[string]any `json:"content"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
}

// ApplyTemplate calls POST /templates/:platform/:templateId/apply and
// returns the mapped content. Non-2xx responses and {success:false}
// payloads become KindApply failures carrying the service message.
func (c *Client) ApplyTemplate(ctx context.Context, platform string, req ApplyRequest) (map[string]any, error) {
	const op = "client.apply_template"
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, failure.Apply(op, "template id is required")
	}
	endpoint := fmt.Sprintf("/templates/%s/%s/apply", url.PathEscape(platform), url.PathEscape(req.TemplateID))
	body, err := c.do(ctx, "POST", endpoint, req)
	if err != nil {
		wrapped := &failure.Error{Kind: failure.KindApply, Op: op, Err: err}
		var status StatusError
		if errors.As(err, &status) {
			wrapped.Message = status.Message
		}
		return nil, wrapped
	}

	var decoded applyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &failure.Error{Kind: failure.KindApply, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !decoded.Success {
		msg := strings.TrimSpace(decoded.Error)
		if msg == "" {
			msg = strings.TrimSpace(decoded.Message)
		}
		return nil, failure.Apply(op, msg)
	}
	if decoded.Content == nil {
		decoded.Content = map[string]any{}
	}
	return decoded.Content, nil
}

// ListTemplates returns the catalog for a platform from GET /templates/:platform.
func (c *Client) ListTemplates(ctx context.Context, platform string) ([]schema.Template, error) {
	const op = "client.list_templates"
	body, err := c.do(ctx, "GET", "/templates/"+url.PathEscape(platform), nil)
	if err != nil {
		return nil, networkError(op, err)
	}
	var wrapped struct {
		Templates []schema.Template `json:"templates"`
		Data      []schema.Template `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if wrapped.Templates != nil {
			return wrapped.Templates, nil
		}
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
	}
	var list []schema.Template
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, failure.Network(op, fmt.Errorf("decode templates: %w", err))
	}
	return list, nil
}

// ListCategories returns the template categories from GET /templates/categories.
func (c *Client) ListCategories(ctx context.Context) ([]schema.Category, error) {
	const op = "client.list_categories"
	body, err := c.do(ctx, "GET", "/templates/categories", nil)
	if err != nil {
		return nil, networkError(op, err)
	}
	var wrapped struct {
		Categories []schema.Category `json:"categories"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Categories != nil {
		return wrapped.Categories, nil
	}
	var list []schema.Category
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, failure.Network(op, fmt.Errorf("decode categories: %w", err))
	}
	return list, nil
}
