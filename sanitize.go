package checkend

import (
	"fmt"
	"reflect"
	"strings"
)

const filteredSentinel = "[FILTERED]"
const maxSanitizeDepth = 10
const maxValueLength = 10000

// Sanitize returns a copy of data safe to serialize and transmit. Values whose
// lower-cased key contains any lower-cased filter key as a substring are
// replaced with the "[FILTERED]" sentinel; the substring match is deliberate so
// that a filter key like "api_key" also catches "user_api_key_id". Everything
// else is walked recursively: strings are truncated to 10000 characters,
// numbers and booleans pass through, and any other scalar is stringified and
// truncated.
//
// Sanitize never fails. Recursion deeper than 10 levels is replaced with a
// {"_truncated": ...} marker, and re-visited containers (cycles, by reference
// identity) with a "_circular" marker, so arbitrarily shaped or self-referring
// input always yields a well-formed, bounded result. A nil or empty input map
// yields an empty map.
func Sanitize(data map[string]interface{}, filterKeys []string) map[string]interface{} {
	if len(data) == 0 {
		return map[string]interface{}{}
	}
	lowered := make([]string, 0, len(filterKeys))
	for _, key := range filterKeys {
		lowered = append(lowered, strings.ToLower(key))
	}
	return sanitizeMap(data, lowered, 0, map[uintptr]struct{}{})
}

func sanitizeMap(data map[string]interface{}, keys []string, depth int, seen map[uintptr]struct{}) map[string]interface{} {
	if depth > maxSanitizeDepth {
		return map[string]interface{}{"_truncated": "max depth exceeded"}
	}

	ptr := reflect.ValueOf(data).Pointer()
	if _, ok := seen[ptr]; ok {
		return map[string]interface{}{"_circular": "circular reference"}
	}
	seen[ptr] = struct{}{}

	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		if matchesFilterKey(key, keys) {
			result[key] = filteredSentinel
		} else {
			result[key] = sanitizeValue(value, keys, depth+1, seen)
		}
	}
	return result
}

func sanitizeValue(value interface{}, keys []string, depth int, seen map[uintptr]struct{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return truncateString(v)
	case bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case map[string]interface{}:
		return sanitizeMap(v, keys, depth, seen)
	case []interface{}:
		ptr := reflect.ValueOf(v).Pointer()
		if _, ok := seen[ptr]; ok {
			return []interface{}{"_circular: circular reference"}
		}
		seen[ptr] = struct{}{}

		result := make([]interface{}, 0, len(v))
		for _, item := range v {
			result = append(result, sanitizeValue(item, keys, depth+1, seen))
		}
		return result
	default:
		return sanitizeReflected(value, keys, depth, seen)
	}
}

// sanitizeReflected handles container types other than map[string]interface{}
// and []interface{}, such as map[string]string or typed slices, so the filter
// stays total on whatever shape callers hand in.
func sanitizeReflected(value interface{}, keys []string, depth int, seen map[uintptr]struct{}) interface{} {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if depth > maxSanitizeDepth {
			return map[string]interface{}{"_truncated": "max depth exceeded"}
		}
		if _, ok := seen[rv.Pointer()]; ok {
			return map[string]interface{}{"_circular": "circular reference"}
		}
		seen[rv.Pointer()] = struct{}{}

		result := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if matchesFilterKey(key, keys) {
				result[key] = filteredSentinel
			} else {
				result[key] = sanitizeValue(iter.Value().Interface(), keys, depth+1, seen)
			}
		}
		return result
	case reflect.Slice:
		if _, ok := seen[rv.Pointer()]; ok {
			return []interface{}{"_circular: circular reference"}
		}
		seen[rv.Pointer()] = struct{}{}
		fallthrough
	case reflect.Array:
		result := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			result = append(result, sanitizeValue(rv.Index(i).Interface(), keys, depth+1, seen))
		}
		return result
	}

	return truncateString(fmt.Sprintf("%v", value))
}

func matchesFilterKey(key string, loweredKeys []string) bool {
	lowerKey := strings.ToLower(key)
	for _, filterKey := range loweredKeys {
		if strings.Contains(lowerKey, filterKey) {
			return true
		}
	}
	return false
}

func truncateString(s string) string {
	if len(s) <= maxValueLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxValueLength {
		return s
	}
	return string(runes[:maxValueLength])
}
