// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the read-side query options: raw WHERE fragments with
// bound parameters and ordering rules.
package core

// Where encapsulates the filtering options of a read query.
//
// The Fragment is a raw SQL fragment using @pN placeholders; Params binds
// every placeholder the fragment references. Predicates are never built
// from application expressions: the caller writes the fragment and the
// builder only splices it after WHERE.
//
// Example:
//
//	where := core.NewWhere(`"LastName" = @p0`, map[string]any{"p0": "Kovač"},
//		core.OrderBy("FirstName"))
type Where struct {
	Fragment   string
	Params     map[string]any
	OrderBy    string // Database column name to order by
	Descending bool   // ORDER BY direction; ascending by default
}

// QueryOption customizes a Where.
type QueryOption func(*Where)

// OrderBy sorts the result ascending by the given database column.
func OrderBy(column string) QueryOption {
	return func(w *Where) {
		w.OrderBy = column
		w.Descending = false
	}
}

// OrderByDesc sorts the result descending by the given database column.
func OrderByDesc(column string) QueryOption {
	return func(w *Where) {
		w.OrderBy = column
		w.Descending = true
	}
}

// NewWhere builds a Where from a raw fragment, its parameter map, and
// optional ordering rules.
func NewWhere(fragment string, params map[string]any, options ...QueryOption) *Where {
	where := &Where{Fragment: fragment, Params: params}
	for _, option := range options {
		option(where)
	}
	return where
}
