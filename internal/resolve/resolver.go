// Package resolve replaces object attribute references in entity records
// with their display names and human-readable values.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"jrep/internal/diag"
	"jrep/internal/reference"
)

const (
	// KeyPrefix marks an entity key as an object attribute reference.
	KeyPrefix = "oa_"

	// NotFound replaces a picklist value with no matching option.
	NotFound = "not found"

	// EmbeddedRecordKey holds the record inside a nested form sub-payload.
	EmbeddedRecordKey = "object_entity_attribute_values"
)

// Entity is a raw record as received from upstream.
type Entity = map[string]any

// Resolver resolves entities against one reference table.
type Resolver struct {
	table    *reference.Table
	sink     diag.Sink
	annotate bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSink sets the diagnostics sink.
func WithSink(s diag.Sink) Option {
	return func(r *Resolver) { r.sink = diag.OrDiscard(s) }
}

// WithTypeAnnotations makes output keys read "<name> (<data_type>)".
func WithTypeAnnotations(on bool) Option {
	return func(r *Resolver) { r.annotate = on }
}

// New creates a resolver for table.
func New(table *reference.Table, opts ...Option) *Resolver {
	r := &Resolver{table: table, sink: diag.Discard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CanonicalID turns the remainder of a reference key into an attribute ID.
func CanonicalID(key string) string {
	return strings.ReplaceAll(strings.TrimPrefix(key, KeyPrefix), "_", "-")
}

// IsReferenceKey reports whether key carries the reference prefix.
func IsReferenceKey(key string) bool {
	return strings.HasPrefix(key, KeyPrefix)
}

// Resolve returns a new map holding only the entity's reference keys,
// renamed and with values converted according to the attribute type.
// Unknown attributes keep their canonical ID and raw value. Keys are visited
// in sorted order and the first one to claim an output key wins.
func (r *Resolver) Resolve(entity Entity) map[string]any {
	keys := make([]string, 0, len(entity))
	for key := range entity {
		if IsReferenceKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		id := CanonicalID(key)

		attr, ok := r.table.Lookup(id)
		if !ok {
			r.sink.Report(diag.Diagnostic{
				Kind:        diag.UnknownAttribute,
				Message:     "Unknown object attribute id",
				AttributeID: id,
				Key:         key,
			})
			r.set(out, id, id, key, entity[key])
			continue
		}

		r.set(out, r.displayName(attr), id, key, r.resolveValue(attr, entity[key]))
	}
	return out
}

// set stores value under name unless an earlier key already claimed it.
func (r *Resolver) set(out map[string]any, name, id, key string, value any) {
	if _, taken := out[name]; taken {
		r.sink.Report(diag.Diagnostic{
			Kind:        diag.DuplicateOutputKey,
			Message:     fmt.Sprintf("Output key %q already set, ignoring %s", name, key),
			AttributeID: id,
			Key:         key,
		})
		return
	}
	out[name] = value
}

func (r *Resolver) displayName(attr *reference.Attribute) string {
	if r.annotate {
		return fmt.Sprintf("%s (%s)", attr.Name, attr.DataType)
	}
	return attr.Name
}

func (r *Resolver) resolveValue(attr *reference.Attribute, value any) any {
	switch attr.DataType {
	case reference.Picklist:
		return r.resolvePicklist(attr, value)
	case reference.NestedForm:
		return r.resolveNestedForm(attr, value)
	default:
		return value
	}
}

func (r *Resolver) resolvePicklist(attr *reference.Attribute, value any) any {
	switch v := value.(type) {
	case nil:
		r.sink.Report(diag.Diagnostic{
			Kind:        diag.MissingPicklistValue,
			Message:     fmt.Sprintf("Missing picklist value for %s", attr.Name),
			AttributeID: attr.ID,
		})
		return nil
	case string:
		return r.picklistLabel(attr, v)
	case []any:
		labels := make([]any, len(v))
		for i, elem := range v {
			id, ok := elem.(string)
			if !ok {
				r.reportUnsupported(attr, elem)
				labels[i] = NotFound
				continue
			}
			labels[i] = r.picklistLabel(attr, id)
		}
		return labels
	default:
		r.reportUnsupported(attr, v)
		return NotFound
	}
}

func (r *Resolver) picklistLabel(attr *reference.Attribute, optionID string) string {
	if opt, ok := attr.Option(optionID); ok {
		return opt.Name
	}
	r.sink.Report(diag.Diagnostic{
		Kind:        diag.PicklistOptionNotFound,
		Message:     "Picklist option not found",
		AttributeID: attr.ID,
		Key:         optionID,
	})
	return NotFound
}

func (r *Resolver) reportUnsupported(attr *reference.Attribute, value any) {
	r.sink.Report(diag.Diagnostic{
		Kind:        diag.UnsupportedPicklistValue,
		Message:     fmt.Sprintf("Unsupported picklist value of type %T", value),
		AttributeID: attr.ID,
	})
}

// resolveNestedForm converts {<key>: {object_entity_attribute_values: {...}}}
// into a list of resolved records ordered by key.
func (r *Resolver) resolveNestedForm(attr *reference.Attribute, value any) any {
	if value == nil {
		return nil
	}

	forms, ok := value.(map[string]any)
	if !ok {
		r.reportMalformed(attr, "", value)
		return value
	}

	keys := make([]string, 0, len(forms))
	for k, sub := range forms {
		if _, ok := sub.(map[string]any); !ok {
			r.reportMalformed(attr, k, sub)
			return value
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]any, 0, len(keys))
	for _, k := range keys {
		sub := forms[k].(map[string]any)

		embedded, present := sub[EmbeddedRecordKey]
		if !present || embedded == nil {
			r.sink.Report(diag.Diagnostic{
				Kind:        diag.NestedFormMissingRecord,
				Message:     "Nested form entry has no embedded record",
				AttributeID: attr.ID,
				Key:         k,
			})
			records = append(records, map[string]any{})
			continue
		}

		record, ok := embedded.(map[string]any)
		if !ok {
			r.reportMalformed(attr, k, embedded)
			return value
		}
		records = append(records, r.Resolve(record))
	}
	return records
}

func (r *Resolver) reportMalformed(attr *reference.Attribute, key string, value any) {
	r.sink.Report(diag.Diagnostic{
		Kind:        diag.NestedFormMalformed,
		Message:     fmt.Sprintf("Nested form value of type %T left unresolved", value),
		AttributeID: attr.ID,
		Key:         key,
	})
}
