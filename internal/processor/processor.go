// Package processor exposes the three supported input shapes (entity,
// response envelope and payload) over a single loaded reference table.
package processor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"jrep/internal/diag"
	"jrep/internal/errors"
	"jrep/internal/reference"
	"jrep/internal/resolve"
	"jrep/internal/searchquery"
)

// Output keys of a processed payload.
const (
	KeyObjectAttributes = "object_attributes"
	KeySearchQuery      = "search_query"
	KeyEntityValues     = "object_entity_attribute_values"
)

// Record is one element of a response envelope.
type Record struct {
	ID         string         `json:"id,omitempty"`
	Attributes resolve.Entity `json:"attributes"`
}

// Response is an envelope of records.
type Response struct {
	Data []Record `json:"data"`
}

// Payload carries any combination of attribute IDs, a search query and an
// embedded entity. Absent or null fields decode to nil and are skipped.
type Payload struct {
	ObjectAttributeIDs          []string           `json:"object_attribute_ids,omitempty"`
	SearchQuery                 *searchquery.Query `json:"search_query,omitempty"`
	ObjectEntityAttributeValues resolve.Entity     `json:"object_entity_attribute_values,omitempty"`
}

// Processor applies resolution and translation against one table. It holds
// no mutable state and may be shared between goroutines.
type Processor struct {
	table      *reference.Table
	resolver   *resolve.Resolver
	translator *searchquery.Translator
}

// Option configures a Processor.
type Option func(*settings)

type settings struct {
	sink     diag.Sink
	annotate bool
}

// WithSink routes diagnostics to s.
func WithSink(s diag.Sink) Option {
	return func(st *settings) { st.sink = s }
}

// WithTypeAnnotations appends the data type to resolved keys.
func WithTypeAnnotations(on bool) Option {
	return func(st *settings) { st.annotate = on }
}

// New creates a processor for table.
func New(table *reference.Table, opts ...Option) *Processor {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}
	sink := diag.OrDiscard(st.sink)
	return &Processor{
		table:      table,
		resolver:   resolve.New(table, resolve.WithSink(sink), resolve.WithTypeAnnotations(st.annotate)),
		translator: searchquery.NewTranslator(table, sink),
	}
}

// Table returns the reference table.
func (p *Processor) Table() *reference.Table {
	return p.table
}

// Entity resolves a single record.
func (p *Processor) Entity(e resolve.Entity) map[string]any {
	return p.resolver.Resolve(e)
}

// Response resolves every record of the envelope, preserving order.
func (p *Processor) Response(r Response) []map[string]any {
	out := make([]map[string]any, 0, len(r.Data))
	for _, rec := range r.Data {
		out = append(out, p.resolver.Resolve(rec.Attributes))
	}
	return out
}

// Payload resolves whichever parts the payload carries.
func (p *Processor) Payload(pl Payload) map[string]any {
	out := make(map[string]any)

	if pl.ObjectAttributeIDs != nil {
		out[KeyObjectAttributes] = p.attributeNames(pl.ObjectAttributeIDs)
	}
	if pl.SearchQuery != nil {
		out[KeySearchQuery] = p.translator.Query(*pl.SearchQuery)
	}
	if pl.ObjectEntityAttributeValues != nil {
		out[KeyEntityValues] = p.resolver.Resolve(pl.ObjectEntityAttributeValues)
	}

	return out
}

// Query renders a bare search query.
func (p *Processor) Query(q searchquery.Query) string {
	return p.translator.Query(q)
}

func (p *Processor) attributeNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name := searchquery.NotFoundName
		if attr, ok := p.table.Lookup(id); ok {
			name = attr.Name
		}
		names = append(names, fmt.Sprintf("%s, %s", name, id))
	}
	return names
}

// DecodeEntity parses a flat entity document.
func DecodeEntity(data []byte) (resolve.Entity, error) {
	var e resolve.Entity
	if err := decodeStrict(data, &e); err != nil {
		return nil, errors.Wrap(errors.ParseError, "invalid entity document", err)
	}
	if e == nil {
		return nil, errors.New(errors.ParseError, "invalid entity document: expected an object")
	}
	return e, nil
}

// DecodeResponse parses a response envelope.
func DecodeResponse(data []byte) (Response, error) {
	var raw struct {
		Data *[]struct {
			ID         string         `json:"id"`
			Attributes resolve.Entity `json:"attributes"`
		} `json:"data"`
	}
	if err := decodeStrict(data, &raw); err != nil {
		return Response{}, errors.Wrap(errors.ParseError, "invalid response document", err)
	}
	if raw.Data == nil {
		return Response{}, errors.New(errors.ParseError, "invalid response document: missing data")
	}

	resp := Response{Data: make([]Record, 0, len(*raw.Data))}
	for i, rec := range *raw.Data {
		if rec.Attributes == nil {
			return Response{}, errors.Newf(errors.ParseError, "invalid response document: data[%d] has no attributes", i)
		}
		resp.Data = append(resp.Data, Record{ID: rec.ID, Attributes: rec.Attributes})
	}
	return resp, nil
}

// DecodePayload parses a payload document.
func DecodePayload(data []byte) (Payload, error) {
	var pl Payload
	if err := decodeStrict(data, &pl); err != nil {
		return Payload{}, errors.Wrap(errors.ParseError, "invalid payload document", err)
	}
	return pl, nil
}

// DecodeQuery parses a bare search query document.
func DecodeQuery(data []byte) (searchquery.Query, error) {
	var q searchquery.Query
	if err := decodeStrict(data, &q); err != nil {
		return searchquery.Query{}, errors.Wrap(errors.ParseError, "invalid search query document", err)
	}
	return q, nil
}

// decodeStrict decodes exactly one JSON value and rejects trailing data.
// Numbers are kept as json.Number so passthrough values keep their text.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}
