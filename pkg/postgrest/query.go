package postgrest

import (
	"fmt"
	"net/url"
	"strings"
)

// Query accumulates PostgREST request parameters. Filters on the same column
// compose conjunctively; Or adds one explicit disjunction group.
type Query struct {
	params []param
}

type param struct {
	key   string
	value string
}

func NewQuery() Query {
	return Query{}
}

func (q Query) Eq(column string, value any) Query {
	return q.add(column, fmt.Sprintf("eq.%v", value))
}

func (q Query) Lte(column string, value any) Query {
	return q.add(column, fmt.Sprintf("lte.%v", value))
}

func (q Query) Gte(column string, value any) Query {
	return q.add(column, fmt.Sprintf("gte.%v", value))
}

// Is matches PostgREST identity predicates, e.g. Is("converted_contract_id", "null").
func (q Query) Is(column string, value string) Query {
	return q.add(column, "is."+value)
}

func (q Query) Ilike(column string, pattern string) Query {
	return q.add(column, "ilike."+pattern)
}

// Or adds a disjunction over the given conditions, each written as
// "column.operator.value" (e.g. "name.ilike.*acme*").
func (q Query) Or(conditions ...string) Query {
	if len(conditions) == 0 {
		return q
	}
	return q.add("or", "("+strings.Join(conditions, ",")+")")
}

func (q Query) Select(columns string) Query {
	return q.add("select", columns)
}

func (q Query) Order(order string) Query {
	return q.add("order", order)
}

func (q Query) Limit(n int) Query {
	return q.add("limit", fmt.Sprintf("%d", n))
}

func (q Query) Offset(n int) Query {
	return q.add("offset", fmt.Sprintf("%d", n))
}

func (q Query) add(key, value string) Query {
	next := Query{params: make([]param, 0, len(q.params)+1)}
	next.params = append(next.params, q.params...)
	next.params = append(next.params, param{key: key, value: value})
	return next
}

// Encode renders the query string without a leading "?".
func (q Query) Encode() string {
	if len(q.params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.params))
	for _, p := range q.params {
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

func (q Query) IsEmpty() bool {
	return len(q.params) == 0
}
