package logging

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

// infoHighlightKeys are printed first, in this order, at info level and above.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"outcome",
	FieldSource,
	FieldDestination,
	"error",
	FieldErrorHint,
	FieldImpact,
}

// debugOnlyKeys are dropped from info-level console output; the JSON run log keeps them.
var debugOnlyKeys = map[string]struct{}{
	"hash":          {},
	"existing":      {},
	"queue_depth":   {},
	"creation_time": {},
	"modified_time": {},
}

func selectFields(attrs []kv, includeDebug bool) []infoField {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if _, debugOnly := debugOnlyKeys[attr.key]; debugOnly && !includeDebug {
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: formatValueForKey(attr.key, attr.value)})
	}
	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if isByteSizeKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			if n := v.Int64(); n >= 0 {
				return humanize.IBytes(uint64(n))
			}
		case slog.KindUint64:
			return humanize.IBytes(v.Uint64())
		}
	}
	if v.Kind() == slog.KindDuration {
		return v.Duration().Round(time.Millisecond).String()
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" && len(value) > 200 {
		value = value[:200] + "…"
	}
	return value
}

func isByteSizeKey(key string) bool {
	return key == "bytes" || key == "size" || strings.HasSuffix(key, "_bytes")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldSource:
		return "From"
	case FieldDestination:
		return "To"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}
