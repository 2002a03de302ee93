// Package searchquery models boolean search-query trees and renders them
// as fully parenthesised prefix expressions.
package searchquery

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GroupOperator joins the members of a group.
type GroupOperator string

const (
	And GroupOperator = "AND"
	Or  GroupOperator = "OR"
	Not GroupOperator = "NOT"
)

// UnmarshalJSON accepts only AND, OR and NOT.
func (o *GroupOperator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("group operator must be a string: %w", err)
	}
	switch op := GroupOperator(s); op {
	case And, Or, Not:
		*o = op
		return nil
	default:
		return fmt.Errorf("unknown group operator %q", s)
	}
}

// ConditionOperator is the comparison applied by a leaf condition.
type ConditionOperator string

const (
	Equal             ConditionOperator = "equal"
	NotEqual          ConditionOperator = "not_equal"
	Contain           ConditionOperator = "contain"
	NotContain        ConditionOperator = "not_contain"
	IsPresent         ConditionOperator = "is_present"
	IsBlank           ConditionOperator = "is_blank"
	Greater           ConditionOperator = "greater"
	GreaterOrEqual    ConditionOperator = "greater_or_equal"
	Less              ConditionOperator = "less"
	LessOrEqual       ConditionOperator = "less_or_equal"
	Between           ConditionOperator = "between"
	Today             ConditionOperator = "today"
	BeforeToday       ConditionOperator = "before_today"
	AfterToday        ConditionOperator = "after_today"
	ThisWeek          ConditionOperator = "this_week"
	BeforeThisWeek    ConditionOperator = "before_this_week"
	AfterThisWeek     ConditionOperator = "after_this_week"
	ThisMonth         ConditionOperator = "this_month"
	BeforeThisMonth   ConditionOperator = "before_this_month"
	AfterThisMonth    ConditionOperator = "after_this_month"
	ThisQuarter       ConditionOperator = "this_quarter"
	BeforeThisQuarter ConditionOperator = "before_this_quarter"
	AfterThisQuarter  ConditionOperator = "after_this_quarter"
	ThisYear          ConditionOperator = "this_year"
	BeforeThisYear    ConditionOperator = "before_this_year"
	AfterThisYear     ConditionOperator = "after_this_year"
	AnyOf             ConditionOperator = "any_of"
	NoneOf            ConditionOperator = "none_of"
	IsTrue            ConditionOperator = "is_true"
	IsFalse           ConditionOperator = "is_false"
	AddressMatch      ConditionOperator = "address"
)

// operatorTokens maps wire operators to rendered tokens. Only the ordering
// comparisons differ from their wire value.
var operatorTokens = map[ConditionOperator]string{
	Equal:             "equal",
	NotEqual:          "not_equal",
	Contain:           "contain",
	NotContain:        "not_contain",
	IsPresent:         "is_present",
	IsBlank:           "is_blank",
	Greater:           "greater_than",
	GreaterOrEqual:    "greater_than_equal",
	Less:              "less_than",
	LessOrEqual:       "less_than_equal",
	Between:           "between",
	Today:             "today",
	BeforeToday:       "before_today",
	AfterToday:        "after_today",
	ThisWeek:          "this_week",
	BeforeThisWeek:    "before_this_week",
	AfterThisWeek:     "after_this_week",
	ThisMonth:         "this_month",
	BeforeThisMonth:   "before_this_month",
	AfterThisMonth:    "after_this_month",
	ThisQuarter:       "this_quarter",
	BeforeThisQuarter: "before_this_quarter",
	AfterThisQuarter:  "after_this_quarter",
	ThisYear:          "this_year",
	BeforeThisYear:    "before_this_year",
	AfterThisYear:     "after_this_year",
	AnyOf:             "any_of",
	NoneOf:            "none_of",
	IsTrue:            "is_true",
	IsFalse:           "is_false",
	AddressMatch:      "address",
}

// Token returns the rendered form of the operator.
func (o ConditionOperator) Token() string {
	return operatorTokens[o]
}

// UnmarshalJSON accepts only known operators.
func (o *ConditionOperator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("condition operator must be a string: %w", err)
	}
	op := ConditionOperator(s)
	if _, ok := operatorTokens[op]; !ok {
		return fmt.Errorf("unknown condition operator %q", s)
	}
	*o = op
	return nil
}

// Query is the root of a search query document.
type Query struct {
	Groups []Group `json:"search_query_groups"`
}

// Group is a node of the query tree.
type Group struct {
	Operator   GroupOperator `json:"operator"`
	Conditions []Condition   `json:"search_query_conditions,omitempty"`
	Children   []Group       `json:"children,omitempty"`
}

// Condition is a leaf comparison against one attribute. Value holds the
// raw JSON and is nil when the document omits it or sets it to null.
type Condition struct {
	Operator    ConditionOperator `json:"operator"`
	AttributeID string            `json:"object_attribute_id"`
	Value       json.RawMessage   `json:"value,omitempty"`
}

// HasValue reports whether the condition carries a non-null value.
func (c Condition) HasValue() bool {
	v := bytes.TrimSpace(c.Value)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

// Parse decodes a search query document.
func Parse(data []byte) (Query, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// UnmarshalJSON decodes the query and rejects documents without groups or
// with incomplete nodes.
func (q *Query) UnmarshalJSON(data []byte) error {
	var raw struct {
		Groups *[]Group `json:"search_query_groups"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Groups == nil {
		return fmt.Errorf("missing search_query_groups")
	}
	for i := range *raw.Groups {
		if err := (*raw.Groups)[i].validate(fmt.Sprintf("search_query_groups[%d]", i)); err != nil {
			return err
		}
	}
	q.Groups = *raw.Groups
	return nil
}

func (g Group) validate(path string) error {
	if g.Operator == "" {
		return fmt.Errorf("%s: missing operator", path)
	}
	for i, c := range g.Conditions {
		if c.Operator == "" {
			return fmt.Errorf("%s.search_query_conditions[%d]: missing operator", path, i)
		}
		if c.AttributeID == "" {
			return fmt.Errorf("%s.search_query_conditions[%d]: missing object_attribute_id", path, i)
		}
	}
	for i := range g.Children {
		if err := g.Children[i].validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
