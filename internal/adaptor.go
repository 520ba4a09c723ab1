package internal

import (
	"fmt"
)

// PathParamFunc extracts all path parameters from a framework context.
type PathParamFunc func(ctx any) map[string]string

// QueryParamFunc extracts all query parameters from a framework context.
type QueryParamFunc func(ctx any) map[string][]string

// Unify returns a function merging path and query parameters into one flat
// map for filter binding. A name used both as path and query parameter is an
// API-design bug and panics; multi-value query parameters keep only their
// first value, since table filters are single-valued.
func Unify(pathFunc PathParamFunc, queryFunc QueryParamFunc) func(ctx any) map[string]string {
	return func(ctx any) map[string]string {
		data := make(map[string]string)
		pathParams := pathFunc(ctx)
		for k, v := range pathParams {
			data[k] = v
		}
		for key, values := range queryFunc(ctx) {
			if _, exists := pathParams[key]; exists {
				panic(fmt.Sprintf("metaform: the key '%s' is used as both a path and a query parameter; rename one to avoid ambiguity", key))
			}
			if len(values) > 0 {
				data[key] = values[0]
			}
		}
		return data
	}
}
