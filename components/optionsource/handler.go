package optionsource

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-postgen/pkg/schema"
)

// maxBodyBytes bounds registration payloads.
const maxBodyBytes = 1 << 16

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type optionsResponse struct {
	Success bool            `json:"success"`
	Options []schema.Option `json:"options"`
}

type registerResponse struct {
	Success bool           `json:"success"`
	Option  *schema.Option `json:"option,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a net/http handler from a pre-constructed Options value.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		allowed := http.MethodGet + ", " + http.MethodHead
		if !opts.ReadOnly {
			allowed += ", " + http.MethodPost
		}
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		case http.MethodPost:
			if opts.ReadOnly {
				w.Header().Set("Allow", allowed)
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
		default:
			w.Header().Set("Allow", allowed)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		platform, source := requestKey(r)
		if source == "" {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		if r.Method == http.MethodPost {
			register(w, r, opts, platform, source)
			return
		}

		query := r.URL.Query().Get(opts.SearchParam)
		limit := parseInt(r.URL.Query().Get(opts.LimitParam))
		results := Search(opts.Catalog.List(platform, source), query, limit, opts)
		if results == nil {
			results = []schema.Option{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		writeJSON(w, optionsResponse{Success: true, Options: results})
	})
}

func register(w http.ResponseWriter, r *http.Request, opts Options, platform, source string) {
	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	value := postedValue(body, source)
	if value == "" {
		writeFailure(w, http.StatusBadRequest, "value is required")
		return
	}
	if opts.Validate != nil {
		if err := opts.Validate(platform, source, value); err != nil {
			code := http.StatusUnprocessableEntity
			var httpErr HTTPError
			if errors.As(err, &httpErr) {
				code = httpErr.StatusCode()
			}
			writeFailure(w, code, err.Error())
			return
		}
	}

	opt := schema.Option{Label: value, Value: value}
	status := http.StatusOK
	if opts.Catalog.Add(platform, source, opt) {
		status = http.StatusCreated
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	writeJSON(w, registerResponse{Success: true, Option: &opt})
}

// postedValue reads the single {<field>: value} entry. With several keys
// the one named after the source, then "value", wins.
func postedValue(body map[string]any, source string) string {
	if len(body) == 0 {
		return ""
	}
	for _, key := range []string{source, "value"} {
		if raw, ok := body[key].(string); ok {
			return strings.TrimSpace(raw)
		}
	}
	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	raw, _ := body[keys[0]].(string)
	return strings.TrimSpace(raw)
}

// requestKey reads the platform and source from the matched route, falling
// back to the request path for handlers mounted without wildcards.
func requestKey(r *http.Request) (platform, source string) {
	platform = strings.TrimSpace(r.PathValue(PlatformParam))
	source = strings.TrimSpace(r.PathValue(SourceParam))
	if platform != "" && source != "" {
		return platform, source
	}
	segments := strings.FieldsFunc(r.URL.Path, func(r rune) bool { return r == '/' })
	if source == "" && len(segments) > 0 {
		source = segments[len(segments)-1]
	}
	if platform == "" {
		for i := 0; i+2 < len(segments); i++ {
			if segments[i] == "platforms" {
				platform = segments[i+1]
				break
			}
		}
	}
	return platform, source
}

func writeJSON(w io.Writer, payload any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

func writeFailure(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	writeJSON(w, registerResponse{Success: false, Message: message})
}

func writeGuardError(w http.ResponseWriter, err error) {
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
