// Package reference loads the object attribute dictionary that every
// resolution and translation is performed against.
package reference

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DataType is the declared type of an object attribute.
type DataType int

const (
	Address DataType = iota + 1
	Boolean
	Currency
	Date
	Datetime
	Email
	EncryptedString
	File
	Float
	ID
	Integer
	NestedForm
	Number
	Percent
	Phone
	Picklist
	Reference
	String
	Text
	Textarea
	RichTextarea
)

var dataTypeNames = map[DataType]string{
	Address:         "address",
	Boolean:         "boolean",
	Currency:        "currency",
	Date:            "date",
	Datetime:        "datetime",
	Email:           "email",
	EncryptedString: "encrypted_string",
	File:            "file",
	Float:           "float",
	ID:              "id",
	Integer:         "integer",
	NestedForm:      "nested_form",
	Number:          "number",
	Percent:         "percent",
	Phone:           "phone",
	Picklist:        "picklist",
	Reference:       "reference",
	String:          "string",
	Text:            "text",
	Textarea:        "textarea",
	RichTextarea:    "rich_textarea",
}

var dataTypesByName = func() map[string]DataType {
	m := make(map[string]DataType, len(dataTypeNames))
	for dt, name := range dataTypeNames {
		m[name] = dt
	}
	return m
}()

// ParseDataType converts a wire value into a DataType.
func ParseDataType(s string) (DataType, error) {
	if dt, ok := dataTypesByName[s]; ok {
		return dt, nil
	}
	return 0, fmt.Errorf("unknown data_type %q", s)
}

// String returns the wire value.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// MarshalJSON encodes the wire value.
func (d DataType) MarshalJSON() ([]byte, error) {
	if _, ok := dataTypeNames[d]; !ok {
		return nil, fmt.Errorf("invalid data type %d", int(d))
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts only known wire values.
func (d *DataType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("data_type must be a string: %w", err)
	}
	dt, err := ParseDataType(s)
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

// PicklistOption is one selectable value of a picklist attribute.
type PicklistOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Attribute is a resolved attribute definition.
type Attribute struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	DataType        DataType         `json:"dataType"`
	PicklistOptions []PicklistOption `json:"picklistOptions"`
}

// Option returns the picklist option with the given ID.
func (a *Attribute) Option(id string) (PicklistOption, bool) {
	for _, opt := range a.PicklistOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return PicklistOption{}, false
}

// Table maps attribute IDs to definitions. It is never modified after Load
// returns, so concurrent readers need no locking.
type Table struct {
	attrs map[string]*Attribute
}

// NewTable builds a table from attrs. The first definition of an ID wins.
func NewTable(attrs ...Attribute) *Table {
	t := &Table{attrs: make(map[string]*Attribute, len(attrs))}
	for i := range attrs {
		if _, exists := t.attrs[attrs[i].ID]; exists {
			continue
		}
		a := attrs[i]
		t.attrs[a.ID] = &a
	}
	return t
}

// Lookup returns the attribute with the given ID.
func (t *Table) Lookup(id string) (*Attribute, bool) {
	if t == nil {
		return nil, false
	}
	a, ok := t.attrs[id]
	return a, ok
}

// Len returns the number of attributes.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.attrs)
}

// IDs returns every attribute ID in ascending order.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.attrs))
	for id := range t.attrs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Attributes returns copies of every attribute, ordered by ID.
func (t *Table) Attributes() []Attribute {
	ids := t.IDs()
	out := make([]Attribute, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.attrs[id])
	}
	return out
}
