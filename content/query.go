package content

import (
	"net/url"
	"strconv"
	"strings"
)

// Condition is one where-clause of the API query language, e.g.
// where[slug][equals]=hello.
type Condition struct {
	Field    string
	Operator string // equals | in
	Value    string
}

// Equals matches documents whose field equals value.
func Equals(field, value string) Condition {
	return Condition{Field: field, Operator: "equals", Value: value}
}

// In matches documents whose relation field contains value.
func In(field, value string) Condition {
	return Condition{Field: field, Operator: "in", Value: value}
}

// ListOptions selects and shapes a collection listing.
type ListOptions struct {
	Where    []Condition
	Limit    int
	Sort     string // "title", "-createdAt"
	Depth    int    // relation traversal depth, 0 = API default
	Populate string // relation to populate, e.g. "categories"
}

// Encode renders the options as a query string in a stable order. Bracketed
// keys are written literally; values are escaped.
func (o ListOptions) Encode() string {
	var parts []string
	for _, w := range o.Where {
		key := "where[" + w.Field + "][" + w.Operator + "]"
		if w.Operator == "in" {
			key += "[]"
		}
		parts = append(parts, key+"="+url.QueryEscape(w.Value))
	}
	if o.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(o.Limit))
	}
	if o.Sort != "" {
		parts = append(parts, "sort="+url.QueryEscape(o.Sort))
	}
	if o.Depth > 0 {
		parts = append(parts, "depth="+strconv.Itoa(o.Depth))
	}
	if o.Populate != "" {
		parts = append(parts, "populate="+url.QueryEscape(o.Populate))
	}
	return strings.Join(parts, "&")
}
