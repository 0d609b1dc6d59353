package query

import (
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached read: a resource name plus its filter parameters.
type Key struct {
	// Resource is the logical resource name (e.g., "mentors", "galleryImages")
	Resource string

	// Params are the filter parameters (e.g., {"expertise": "Data Science"}).
	// Empty values are treated as absent.
	Params map[string]string
}

// NewKey builds a key from alternating name/value pairs.
// A trailing name without a value is ignored.
func NewKey(resource string, kv ...string) Key {
	k := Key{Resource: resource}
	for i := 0; i+1 < len(kv); i += 2 {
		if k.Params == nil {
			k.Params = make(map[string]string, len(kv)/2)
		}
		k.Params[kv[i]] = kv[i+1]
	}
	return k
}

// String generates a deterministic key string.
// Format: resource:param1=val1:param2=val2 (params sorted, values query-escaped)
//
// Example:
//
//	mentors:company=Acme:expertise=Data+Science
func (k Key) String() string {
	parts := []string{k.Resource}

	names := k.paramNames()
	for _, name := range names {
		parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(k.Params[name]))
	}

	return strings.Join(parts, ":")
}

// Equal reports whether two keys address the same cache entry.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// Values returns the non-empty params as query-string values.
func (k Key) Values() url.Values {
	names := k.paramNames()
	if len(names) == 0 {
		return nil
	}
	v := make(url.Values, len(names))
	for _, name := range names {
		v.Set(name, k.Params[name])
	}
	return v
}

// Param returns a single parameter value.
func (k Key) Param(name string) string {
	return k.Params[name]
}

func (k Key) paramNames() []string {
	names := make([]string, 0, len(k.Params))
	for name, value := range k.Params {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Matcher selects cache entries, e.g. for invalidation.
type Matcher func(Key) bool

// MatchKey matches exactly one key.
func MatchKey(key Key) Matcher {
	want := key.String()
	return func(k Key) bool {
		return k.String() == want
	}
}

// MatchResource matches every key of a resource regardless of params.
func MatchResource(resource string) Matcher {
	return func(k Key) bool {
		return k.Resource == resource
	}
}
