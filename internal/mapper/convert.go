package mapper

// convert.go - registries of named cell converters and join-key
// transforms referenced from mapping configs.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Converter turns a raw source cell into a typed value. Returning nil
// produces a null cell.
type Converter func(raw string) (any, error)

// KeyTransform normalizes a join key before matching.
type KeyTransform func(key string) string

var converters = map[string]Converter{
	"trim":  func(raw string) (any, error) { return emptyNull(strings.TrimSpace(raw)), nil },
	"upper": func(raw string) (any, error) { return emptyNull(strings.ToUpper(strings.TrimSpace(raw))), nil },
	"lower": func(raw string) (any, error) { return emptyNull(strings.ToLower(strings.TrimSpace(raw))), nil },
	"digits": func(raw string) (any, error) {
		return emptyNull(digitsOnly(raw)), nil
	},
	// NCES local education agency IDs are 7 digits.
	"district_id": func(raw string) (any, error) {
		return numericID(raw, 7)
	},
	// NCES school IDs are 12 digits.
	"school_id": func(raw string) (any, error) {
		return numericID(raw, 12)
	},
	// Spreadsheets render ID columns as floats ("8001.0"); recover the
	// integer text.
	"numeric_id": func(raw string) (any, error) {
		return numericID(raw, 0)
	},
}

var keyTransforms = map[string]KeyTransform{
	"identity": func(key string) string { return key },
	"trim":     strings.TrimSpace,
	"upper":    func(key string) string { return strings.ToUpper(strings.TrimSpace(key)) },
	"lower":    func(key string) string { return strings.ToLower(strings.TrimSpace(key)) },
	"digits":   digitsOnly,
	"zfill7":   func(key string) string { return zfill(strings.TrimSpace(key), 7) },
	"zfill12":  func(key string) string { return zfill(strings.TrimSpace(key), 12) },
	"strip_leading_zeros": func(key string) string {
		return strings.TrimLeft(strings.TrimSpace(key), "0")
	},
}

// LookupConverter resolves a converter name from a mapping config.
func LookupConverter(name string) (Converter, error) {
	c, ok := converters[name]
	if !ok {
		return nil, fmt.Errorf("unknown converter %q (available: %s)", name, names(converters))
	}
	return c, nil
}

// LookupKeyTransform resolves a join-key transform name.
func LookupKeyTransform(name string) (KeyTransform, error) {
	if name == "" {
		return keyTransforms["identity"], nil
	}
	t, ok := keyTransforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q (available: %s)", name, names(keyTransforms))
	}
	return t, nil
}

func names[V any](m map[string]V) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func emptyNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// numericID recovers an integer ID that a spreadsheet may have stored
// as a float, zero-filled to width (0 = no fill). Comma-separated
// multi-IDs are handled element-wise.
func numericID(raw string, width int) (any, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		f, err := strconv.ParseFloat(part, 64)
		if err != nil || f != float64(int64(f)) || f < 0 {
			return nil, fmt.Errorf("invalid numeric id %q", part)
		}
		parts[i] = zfill(strconv.FormatInt(int64(f), 10), width)
	}
	return strings.Join(parts, ","), nil
}
