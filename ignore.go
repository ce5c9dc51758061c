package checkend

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
)

// IgnorePattern decides whether a reported error should be dropped before a
// notice is built. The closed set of variants is by runtime type
// (IgnoreType), by type name (IgnoreName) and by regular expression
// (IgnoreRegexp). Each variant is evaluated against every error in the
// Unwrap chain, the Go analogue of matching an exception hierarchy.
type IgnorePattern interface {
	Matches(err error) bool
}

// IgnoreType matches errors whose runtime type equals the type of target,
// anywhere in the Unwrap chain.
func IgnoreType(target error) IgnorePattern {
	return ignoreByType{target: reflect.TypeOf(target)}
}

// IgnoreName matches errors whose type name equals name, either the full
// "pkg.Type" form or the bare type name.
func IgnoreName(name string) IgnorePattern {
	return ignoreByName{name: name}
}

// IgnoreRegexp matches errors whose type name matches the pattern.
func IgnoreRegexp(pattern *regexp.Regexp) IgnorePattern {
	return ignoreByRegexp{pattern: pattern}
}

type ignoreByType struct {
	target reflect.Type
}

func (p ignoreByType) Matches(err error) bool {
	if p.target == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if reflect.TypeOf(e) == p.target {
			return true
		}
	}
	return false
}

type ignoreByName struct {
	name string
}

func (p ignoreByName) Matches(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		full := errorTypeName(e)
		if full == p.name || shortTypeName(full) == p.name {
			return true
		}
	}
	return false
}

type ignoreByRegexp struct {
	pattern *regexp.Regexp
}

func (p ignoreByRegexp) Matches(err error) bool {
	if p.pattern == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		full := errorTypeName(e)
		if p.pattern.MatchString(full) || p.pattern.MatchString(shortTypeName(full)) {
			return true
		}
	}
	return false
}

func shouldIgnore(err error, patterns []IgnorePattern) bool {
	for _, pattern := range patterns {
		if pattern.Matches(err) {
			return true
		}
	}
	return false
}

// errorTypeName returns the runtime type name of err, without any pointer
// marker, e.g. "fs.PathError" for *fs.PathError.
func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

func shortTypeName(full string) string {
	if idx := strings.LastIndex(full, "."); idx != -1 {
		return full[idx+1:]
	}
	return full
}
