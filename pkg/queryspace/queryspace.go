// Package queryspace enumerates the fixed set of search queries the crawler walks.
//
// The space is the cartesian product of trademark statuses, Nice classes and
// mark types. Enumeration order is statuses outermost, then classes, then
// types, and must stay stable: a persisted cursor stores only the position in
// this order.
package queryspace

import (
	"strconv"
)

// Base holds the request fields that are identical for every query
type Base struct {
	PageSize int
	Criteria string
	Offices  []string
	Fields   []string
}

// Query is one combination of the search axes
type Query struct {
	Index     int
	Status    string
	NiceClass int
	Type      string

	base Base
}

// Enumerate returns every query in crawl order.
func Enumerate(base Base, statuses []string, classes []int, types []string) []Query {
	queries := make([]Query, 0, len(statuses)*len(classes)*len(types))
	for _, status := range statuses {
		for _, class := range classes {
			for _, typ := range types {
				queries = append(queries, Query{
					Index:     len(queries),
					Status:    status,
					NiceClass: class,
					Type:      typ,
					base:      base,
				})
			}
		}
	}
	return queries
}

// Payload renders the JSON request body for the given page.
// The API expects page and pageSize as strings.
func (q Query) Payload(page int) map[string]any {
	return map[string]any{
		"page":        strconv.Itoa(page),
		"pageSize":    strconv.Itoa(q.base.PageSize),
		"criteria":    q.base.Criteria,
		"basicSearch": nil,
		"fOffices":    append([]string(nil), q.base.Offices...),
		"fields":      append([]string(nil), q.base.Fields...),
		"fTMStatus":   []string{q.Status},
		"fNiceClass":  []string{strconv.Itoa(q.NiceClass)},
		"fTMType":     []string{q.Type},
	}
}

// String identifies the query in logs.
func (q Query) String() string {
	return q.Status + "/" + strconv.Itoa(q.NiceClass) + "/" + q.Type
}
