package searchquery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"jrep/internal/diag"
	"jrep/internal/reference"
)

const (
	// NotFoundName is rendered for attribute IDs missing from the table.
	NotFoundName = "not_found"

	// NotFoundPicklistLabel is rendered for unknown picklist option IDs.
	NotFoundPicklistLabel = "not_found_picklist_label"

	// UnsupportedPicklistValue is rendered for picklist values that are
	// neither a string nor an array.
	UnsupportedPicklistValue = "unsupported_picklist_value"
)

// Translator renders query trees against one reference table.
type Translator struct {
	table *reference.Table
	sink  diag.Sink
}

// NewTranslator creates a translator. A nil sink discards diagnostics.
func NewTranslator(table *reference.Table, sink diag.Sink) *Translator {
	return &Translator{table: table, sink: diag.OrDiscard(sink)}
}

// Translate renders every top-level group and joins them with spaces.
func Translate(q Query, table *reference.Table, sink diag.Sink) string {
	return NewTranslator(table, sink).Query(q)
}

// TranslateGroup renders a single group.
func TranslateGroup(g Group, table *reference.Table, sink diag.Sink) string {
	return NewTranslator(table, sink).Group(g)
}

// Query renders q.
func (t *Translator) Query(q Query) string {
	parts := make([]string, 0, len(q.Groups))
	for _, g := range q.Groups {
		parts = append(parts, t.Group(g))
	}
	return strings.Join(parts, " ")
}

// Group renders g as (OP <conditions> <children>).
func (t *Translator) Group(g Group) string {
	parts := []string{string(g.Operator)}

	if g.Conditions != nil {
		conds := make([]string, 0, len(g.Conditions))
		for _, c := range g.Conditions {
			conds = append(conds, t.Condition(c))
		}
		parts = append(parts, strings.Join(conds, " "))
	}

	if g.Children != nil {
		children := make([]string, 0, len(g.Children))
		for _, child := range g.Children {
			children = append(children, t.Group(child))
		}
		parts = append(parts, strings.Join(children, " "))
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// Condition renders c as (op name) or (op name value).
func (t *Translator) Condition(c Condition) string {
	name := NotFoundName
	var value any
	hasValue := c.HasValue()
	if hasValue {
		value = decodeValue(c.Value)
	}

	attr, ok := t.table.Lookup(c.AttributeID)
	if ok {
		name = attr.Name
		if hasValue && attr.DataType == reference.Picklist {
			value = t.picklistValue(attr, value)
		}
	} else {
		t.sink.Report(diag.Diagnostic{
			Kind:        diag.UnknownAttribute,
			Message:     "Unknown object attribute id in search query",
			AttributeID: c.AttributeID,
		})
	}

	if !hasValue {
		return fmt.Sprintf("(%s %s)", c.Operator.Token(), name)
	}
	return fmt.Sprintf("(%s %s %s)", c.Operator.Token(), name, renderValue(value))
}

func (t *Translator) picklistValue(attr *reference.Attribute, value any) any {
	switch v := value.(type) {
	case string:
		return t.label(attr, v)
	case []any:
		labels := make([]any, len(v))
		for i, elem := range v {
			id, _ := elem.(string)
			labels[i] = t.label(attr, id)
		}
		return labels
	default:
		t.sink.Report(diag.Diagnostic{
			Kind:        diag.UnsupportedPicklistValue,
			Message:     fmt.Sprintf("Unsupported picklist value of type %T in search query", value),
			AttributeID: attr.ID,
		})
		return UnsupportedPicklistValue
	}
}

func (t *Translator) label(attr *reference.Attribute, optionID string) string {
	if opt, ok := attr.Option(optionID); ok {
		return opt.Name
	}
	t.sink.Report(diag.Diagnostic{
		Kind:        diag.PicklistOptionNotFound,
		Message:     "Picklist option not found in search query",
		AttributeID: attr.ID,
		Key:         optionID,
	})
	return NotFoundPicklistLabel
}

// decodeValue keeps numbers in their original textual form.
func decodeValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// renderValue writes v as compact JSON without HTML escaping.
func renderValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
