package reference

import (
	"encoding/json"
	"fmt"
	"sort"

	"jrep/internal/diag"
	"jrep/internal/errors"
)

// NotFoundOptionName labels a picklist option whose definition is missing
// from the included section.
const NotFoundOptionName = "not_found"

// Document is the raw reference payload: attribute records plus included
// picklist option resources keyed by their own ID.
type Document struct {
	Data     *[]Record           `json:"data"`
	Included map[string]Included `json:"included"`
}

// Record is one attribute entry of the reference document.
type Record struct {
	ID            string            `json:"id"`
	Attributes    *RecordAttributes `json:"attributes"`
	Relationships *Relationships    `json:"relationships"`
}

// RecordAttributes holds the attribute's own fields.
type RecordAttributes struct {
	Name     *string  `json:"name"`
	DataType DataType `json:"data_type"`
}

// Relationships lists the resources an attribute refers to.
type Relationships struct {
	PicklistOptions *Relationship `json:"picklist_options"`
}

// Relationship is a to-many relationship of resource identifiers.
type Relationship struct {
	Data []ResourceIdentifier `json:"data"`
}

// ResourceIdentifier points at an included resource.
type ResourceIdentifier struct {
	ID string `json:"id"`
}

// Included is a side-loaded picklist option resource.
type Included struct {
	ID         *string             `json:"id"`
	Attributes *IncludedAttributes `json:"attributes"`
}

// IncludedAttributes holds the option label.
type IncludedAttributes struct {
	Name *string `json:"name"`
}

// Load parses a JSON reference document and builds its table.
func Load(data []byte, sink diag.Sink) (*Table, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ParseError, "invalid reference document", err)
	}
	return Decode(&doc, sink)
}

// Decode builds a table from an already parsed document. Option
// relationships with no included definition become "not_found" options;
// structural problems fail the whole load.
func Decode(doc *Document, sink diag.Sink) (*Table, error) {
	sink = diag.OrDiscard(sink)

	if err := doc.validate(); err != nil {
		return nil, errors.Wrap(errors.ParseError, "invalid reference document", err)
	}

	records := *doc.Data
	t := &Table{attrs: make(map[string]*Attribute, len(records))}

	for _, rec := range records {
		if _, exists := t.attrs[rec.ID]; exists {
			sink.Report(diag.Diagnostic{
				Kind:        diag.DuplicateAttribute,
				Message:     "Duplicate object attribute id, keeping first definition",
				AttributeID: rec.ID,
			})
			continue
		}

		t.attrs[rec.ID] = &Attribute{
			ID:              rec.ID,
			Name:            *rec.Attributes.Name,
			DataType:        rec.Attributes.DataType,
			PicklistOptions: doc.picklistOptions(rec, sink),
		}
	}

	return t, nil
}

func (doc *Document) validate() error {
	if doc.Data == nil {
		return fmt.Errorf("missing data section")
	}
	if doc.Included == nil {
		return fmt.Errorf("missing included section")
	}
	for i, rec := range *doc.Data {
		if rec.ID == "" {
			return fmt.Errorf("data[%d]: missing id", i)
		}
		if rec.Attributes == nil {
			return fmt.Errorf("data[%d] (%s): missing attributes", i, rec.ID)
		}
		if rec.Attributes.Name == nil {
			return fmt.Errorf("data[%d] (%s): missing name", i, rec.ID)
		}
		if _, ok := dataTypeNames[rec.Attributes.DataType]; !ok {
			return fmt.Errorf("data[%d] (%s): missing data_type", i, rec.ID)
		}
	}

	keys := make([]string, 0, len(doc.Included))
	for key := range doc.Included {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		inc := doc.Included[key]
		if inc.ID == nil {
			return fmt.Errorf("included[%s]: missing id", key)
		}
		if inc.Attributes == nil {
			return fmt.Errorf("included[%s]: missing attributes", key)
		}
		if inc.Attributes.Name == nil {
			return fmt.Errorf("included[%s]: missing name", key)
		}
	}
	return nil
}

func (doc *Document) picklistOptions(rec Record, sink diag.Sink) []PicklistOption {
	if rec.Relationships == nil || rec.Relationships.PicklistOptions == nil {
		return []PicklistOption{}
	}

	refs := rec.Relationships.PicklistOptions.Data
	options := make([]PicklistOption, 0, len(refs))
	for _, ref := range refs {
		inc, ok := doc.Included[ref.ID]
		if !ok {
			sink.Report(diag.Diagnostic{
				Kind:        diag.MissingPicklistOption,
				Message:     "Picklist option missing from included resources",
				AttributeID: rec.ID,
				Key:         ref.ID,
			})
			options = append(options, PicklistOption{ID: ref.ID, Name: NotFoundOptionName})
			continue
		}
		options = append(options, PicklistOption{ID: *inc.ID, Name: *inc.Attributes.Name})
	}
	return options
}
