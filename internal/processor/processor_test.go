package processor

import (
	"reflect"
	"sync"
	"testing"

	"jrep/internal/diag"
	"jrep/internal/errors"
	"jrep/internal/output"
	"jrep/internal/reference"
	"jrep/internal/testutil"
)

func loadBasic(t *testing.T) (*testutil.FixtureContext, *reference.Table) {
	t.Helper()
	fixture := testutil.LoadFixture(t, "basic")
	table, err := reference.Load(fixture.ReadFile(t, "reference.json"), nil)
	if err != nil {
		t.Fatalf("reference.Load() error = %v", err)
	}
	return fixture, table
}

func TestGolden_Basic(t *testing.T) {
	fixture, table := loadBasic(t)

	t.Run("entity", func(t *testing.T) {
		sink := diag.NewCollector()
		entity, err := DecodeEntity(fixture.ReadFile(t, "entity.json"))
		if err != nil {
			t.Fatalf("DecodeEntity() error = %v", err)
		}
		got := New(table, WithSink(sink)).Entity(entity)
		if len(got) != 3 {
			t.Errorf("got %d entries, want 3", len(got))
		}
		if sink.Count("") != 0 {
			t.Errorf("unexpected diagnostics: %v", sink.Diagnostics())
		}
		testutil.CompareGolden(t, fixture, "entity", got)
	})

	t.Run("entity annotated", func(t *testing.T) {
		entity, err := DecodeEntity(fixture.ReadFile(t, "entity.json"))
		if err != nil {
			t.Fatal(err)
		}
		got := New(table, WithTypeAnnotations(true)).Entity(entity)
		testutil.CompareGolden(t, fixture, "entity_annotated", got)
	})

	t.Run("response", func(t *testing.T) {
		sink := diag.NewCollector()
		resp, err := DecodeResponse(fixture.ReadFile(t, "response.json"))
		if err != nil {
			t.Fatalf("DecodeResponse() error = %v", err)
		}
		got := New(table, WithSink(sink)).Response(resp)
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		if sink.Count(diag.UnknownAttribute) != 1 {
			t.Errorf("unknown attribute diagnostics = %d, want 1", sink.Count(diag.UnknownAttribute))
		}
		testutil.CompareGolden(t, fixture, "response", got)
	})

	t.Run("payload", func(t *testing.T) {
		sink := diag.NewCollector()
		pl, err := DecodePayload(fixture.ReadFile(t, "payload.json"))
		if err != nil {
			t.Fatalf("DecodePayload() error = %v", err)
		}
		got := New(table, WithSink(sink)).Payload(pl)
		if sink.Count(diag.PicklistOptionNotFound) != 1 {
			t.Errorf("option diagnostics = %d, want 1", sink.Count(diag.PicklistOptionNotFound))
		}
		if sink.Count(diag.UnknownAttribute) != 1 {
			t.Errorf("unknown attribute diagnostics = %d, want 1", sink.Count(diag.UnknownAttribute))
		}
		testutil.CompareGolden(t, fixture, "payload", got)
	})
}

func TestPayload_TypeNameScenario(t *testing.T) {
	const id = "019883f0-c110-7bc5-854e-26a7135a9ec0"
	table := reference.NewTable(reference.Attribute{ID: id, Name: "Type_Name", DataType: reference.Picklist})

	pl, err := DecodePayload([]byte(`{
		"object_attribute_ids": ["` + id + `"],
		"search_query": {"search_query_groups": [{"operator": "AND", "search_query_conditions": [
			{"operator": "equal", "object_attribute_id": "` + id + `", "value": "unknown-option"}
		]}]}
	}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}

	got := New(table).Payload(pl)

	wantIDs := []string{"Type_Name, " + id}
	if !reflect.DeepEqual(got[KeyObjectAttributes], wantIDs) {
		t.Errorf("%s = %v, want %v", KeyObjectAttributes, got[KeyObjectAttributes], wantIDs)
	}
	wantQuery := `(AND (equal Type_Name "not_found_picklist_label"))`
	if got[KeySearchQuery] != wantQuery {
		t.Errorf("%s = %q, want %q", KeySearchQuery, got[KeySearchQuery], wantQuery)
	}
	if _, ok := got[KeyEntityValues]; ok {
		t.Errorf("absent entity values should not appear in output")
	}
}

func TestPayload_AbsentFields(t *testing.T) {
	pl, err := DecodePayload([]byte(`{}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if got := New(reference.NewTable()).Payload(pl); len(got) != 0 {
		t.Errorf("Payload({}) = %v, want empty", got)
	}

	pl, err = DecodePayload([]byte(`{"object_attribute_ids": [], "object_entity_attribute_values": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	got := New(reference.NewTable()).Payload(pl)
	if ids, ok := got[KeyObjectAttributes].([]string); !ok || len(ids) != 0 {
		t.Errorf("empty id list should yield empty list, got %#v", got[KeyObjectAttributes])
	}
	if e, ok := got[KeyEntityValues].(map[string]any); !ok || len(e) != 0 {
		t.Errorf("empty entity should yield empty map, got %#v", got[KeyEntityValues])
	}
}

func TestEntity_NumbersKeepText(t *testing.T) {
	_, table := loadBasic(t)
	entity, err := DecodeEntity([]byte(`{
		"oa_0198a1b2_0000_7000_8000_000000000003": 0.1234567,
		"oa_big": 9007199254740993
	}`))
	if err != nil {
		t.Fatalf("DecodeEntity() error = %v", err)
	}

	got, err := output.DeterministicEncode(New(table).Entity(entity))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Amount":0.1234567,"big":9007199254740993}`
	if string(got) != want {
		t.Errorf("encoded entity = %s, want %s", got, want)
	}
}

func TestEntity_NoReferenceKeys(t *testing.T) {
	_, table := loadBasic(t)
	got := New(table).Entity(map[string]any{"id": "x", "name": "y"})
	if len(got) != 0 {
		t.Errorf("Entity() = %v, want empty map", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		decode func([]byte) error
		input  string
	}{
		{"entity not object", func(b []byte) error { _, err := DecodeEntity(b); return err }, `[1,2]`},
		{"entity null", func(b []byte) error { _, err := DecodeEntity(b); return err }, `null`},
		{"entity trailing data", func(b []byte) error { _, err := DecodeEntity(b); return err }, `{} {}`},
		{"response missing data", func(b []byte) error { _, err := DecodeResponse(b); return err }, `{}`},
		{"response record without attributes", func(b []byte) error { _, err := DecodeResponse(b); return err }, `{"data":[{"id":"r1"}]}`},
		{"response invalid json", func(b []byte) error { _, err := DecodeResponse(b); return err }, `{"data":`},
		{"payload wrong id type", func(b []byte) error { _, err := DecodePayload(b); return err }, `{"object_attribute_ids": "a"}`},
		{"payload bad operator", func(b []byte) error { _, err := DecodePayload(b); return err },
			`{"search_query": {"search_query_groups": [{"operator": "XOR"}]}}`},
		{"query missing groups", func(b []byte) error { _, err := DecodeQuery(b); return err }, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode([]byte(tt.input))
			if !errors.IsCode(err, errors.ParseError) {
				t.Errorf("error = %v, want PARSE_ERROR", err)
			}
		})
	}
}

func TestProcessor_ConcurrentUse(t *testing.T) {
	fixture, table := loadBasic(t)
	entity, err := DecodeEntity(fixture.ReadFile(t, "entity.json"))
	if err != nil {
		t.Fatal(err)
	}
	sink := diag.NewCollector()
	proc := New(table, WithSink(sink))
	want := proc.Entity(entity)

	var wg sync.WaitGroup
	results := make([]map[string]any, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = proc.Entity(entity)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("result %d = %v, want %v", i, got, want)
		}
	}
}
