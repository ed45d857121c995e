package engine

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	json "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
)

var (
	defaultFiltersOnce sync.Once

	sanitizePolicyOnce sync.Once
	sanitizePolicy     *bluemonday.Policy
)

// registerDefaultFilters adds the Twig filters pongo2 lacks. Existing filters
// with the same name are left alone.
func registerDefaultFilters() {
	defaultFiltersOnce.Do(func() {
		filters := map[string]pongo2.FilterFunction{
			"trim":        filterTrim,
			"lowerfirst":  filterLowerFirst,
			"raw":         filterRaw,
			"json_encode": filterJSONEncode,
			"sanitize":    filterSanitize,
		}
		for name, fn := range filters {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
			}
		}
	})
}

// filterTrim strips whitespace, or the characters given as the parameter,
// from both ends: {{ s|trim }} or {{ s|trim:"-" }}.
func filterTrim(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if mask := param.String(); mask != "" {
		return pongo2.AsValue(strings.Trim(in.String(), mask)), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterLowerFirst lowercases the first character, mirroring pongo2's
// capfirst.
func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s := in.String()
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return pongo2.AsValue(s), nil
	}
	return pongo2.AsValue(string(unicode.ToLower(r)) + s[size:]), nil
}

// filterRaw is Twig's name for pongo2's "safe".
func filterRaw(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(in.Interface()), nil
}

func filterJSONEncode(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	b, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:json_encode", OrigError: err}
	}
	return pongo2.AsValue(string(b)), nil
}

// filterSanitize strips markup outside the user generated content policy and
// marks the remainder safe.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	sanitizePolicyOnce.Do(func() {
		sanitizePolicy = bluemonday.UGCPolicy()
	})
	return pongo2.AsSafeValue(sanitizePolicy.Sanitize(in.String())), nil
}
