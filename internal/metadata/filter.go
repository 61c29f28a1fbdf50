package metadata

import "strings"

// Filter restricts which schemas an introspector reads. An empty filter
// matches everything except engine-internal schemas, which the
// introspectors exclude on their own.
type Filter struct {
	IncludeSchemas []string
	ExcludeSchemas []string
}

// Match reports whether a schema passes the filter. Include wins over
// exclude: when an include list is set, only its members pass.
func (f Filter) Match(schema string) bool {
	if len(f.IncludeSchemas) > 0 {
		return containsFold(f.IncludeSchemas, schema)
	}
	if containsFold(f.ExcludeSchemas, schema) {
		return false
	}
	return true
}

func (f Filter) IsEmpty() bool {
	return len(f.IncludeSchemas) == 0 && len(f.ExcludeSchemas) == 0
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}
