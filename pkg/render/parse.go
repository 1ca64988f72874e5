package render

import (
	"strings"
	"time"

	"github.com/goliatone/go-postgen/pkg/content"
	"github.com/goliatone/go-postgen/pkg/schema"
)

// Layouts used for date and time values.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DatetimeLayout = "2006-01-02T15:04"
)

// Parse converts raw control input into the value stored for field.
func Parse(field schema.Field, raw any) any {
	switch field.Type {
	case schema.FieldTypeNumber:
		return ParseNumber(field, raw)
	case schema.FieldTypeBoolean:
		return content.Bool(raw)
	case schema.FieldTypeMultiselect, schema.FieldTypeTargetList:
		values := content.Strings(raw)
		if values == nil {
			return []string{}
		}
		return values
	case schema.FieldTypeSelect:
		return content.String(raw)
	case schema.FieldTypeDate:
		return parseTemporal(raw, DateLayout)
	case schema.FieldTypeTime:
		return parseTemporal(raw, TimeLayout)
	case schema.FieldTypeDatetime:
		return parseTemporal(raw, DatetimeLayout)
	default:
		return raw
	}
}

// ParseNumber returns the numeric value of raw. Blank input yields the field
// default, or nil when there is none, so a cleared field never reads as 0.
// Input that is not a number is treated as blank.
func ParseNumber(field schema.Field, raw any) any {
	if n, ok := content.Number(raw); ok {
		return n
	}
	if field.Default == nil {
		return nil
	}
	if n, ok := content.Number(field.Default); ok {
		return n
	}
	return nil
}

func parseTemporal(raw any, layout string) any {
	switch value := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if value.IsZero() {
			return nil
		}
		return value.Format(layout)
	case *time.Time:
		if value == nil || value.IsZero() {
			return nil
		}
		return value.Format(layout)
	}
	text := strings.TrimSpace(content.String(raw))
	if text == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, text); err == nil {
		return parsed.Format(layout)
	}
	return text
}
