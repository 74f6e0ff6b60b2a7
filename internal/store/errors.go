package store

import (
	"fmt"
	"strings"
)

// SchemaMismatchError reports a query referencing a feature table or
// column that does not exist in the persisted store. Valid lists what is
// actually available.
type SchemaMismatchError struct {
	Feature string
	Column  string
	Valid   []string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("no table for feature %q, have: %s",
			e.Feature, strings.Join(e.Valid, ", "))
	}
	return fmt.Sprintf("table %q doesn't have column %q, have: %s",
		e.Feature, e.Column, strings.Join(e.Valid, ", "))
}

// FeatureNotFoundError reports a required query that matched zero rows,
// naming the filter that failed.
type FeatureNotFoundError struct {
	Feature      string
	FilterColumn string
	FilterValue  string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("%s not found with %s = %q",
		e.Feature, e.FilterColumn, e.FilterValue)
}
