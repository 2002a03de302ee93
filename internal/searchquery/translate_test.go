package searchquery

import (
	"testing"

	"jrep/internal/diag"
	"jrep/internal/reference"
)

const typeID = "019883f0-c110-7bc5-854e-26a7135a9ec0"

func scenarioTable() *reference.Table {
	return reference.NewTable(reference.Attribute{
		ID: typeID, Name: "Type_Name", DataType: reference.Picklist,
		PicklistOptions: []reference.PicklistOption{},
	})
}

func richTable() *reference.Table {
	return reference.NewTable(
		reference.Attribute{
			ID: "status", Name: "Status", DataType: reference.Picklist,
			PicklistOptions: []reference.PicklistOption{{ID: "s1", Name: "Open"}, {ID: "s2", Name: "Closed"}},
		},
		reference.Attribute{ID: "amount", Name: "Amount", DataType: reference.Currency},
		reference.Attribute{ID: "due", Name: "Due Date", DataType: reference.Date},
		reference.Attribute{ID: "title", Name: "Title", DataType: reference.String},
	)
}

func TestTranslate_Scenario(t *testing.T) {
	q, err := Parse([]byte(`{
		"search_query_groups": [{
			"operator": "AND",
			"search_query_conditions": [{
				"operator": "equal",
				"object_attribute_id": "019883f0-c110-7bc5-854e-26a7135a9ec0",
				"value": "01988d2e-6a8f-7a06-8a7b-1fa2ae2dd2f5"
			}]
		}]
	}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := Translate(q, scenarioTable(), nil)
	want := `(AND (equal Type_Name "not_found_picklist_label"))`
	if got != want {
		t.Errorf("Translate() = %s, want %s", got, want)
	}
}

func TestTranslateGroup(t *testing.T) {
	g := Group{
		Operator: "OR",
		Conditions: []Condition{
			{Operator: "is_present", AttributeID: "title"},
		},
	}
	got := TranslateGroup(g, richTable(), nil)
	if want := "(OR (is_present Title))"; got != want {
		t.Errorf("TranslateGroup() = %s, want %s", got, want)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "picklist label",
			doc:  `{"search_query_groups": [{"operator": "OR", "search_query_conditions": [{"operator": "equal", "object_attribute_id": "status", "value": "s2"}]}]}`,
			want: `(OR (equal Status "Closed"))`,
		},
		{
			name: "picklist list",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "any_of", "object_attribute_id": "status", "value": ["s1", "zz"]}]}]}`,
			want: `(AND (any_of Status ["Open","not_found_picklist_label"]))`,
		},
		{
			name: "picklist unsupported shape",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "equal", "object_attribute_id": "status", "value": 3}]}]}`,
			want: `(AND (equal Status "unsupported_picklist_value"))`,
		},
		{
			name: "presence without value",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "is_present", "object_attribute_id": "title"}, {"operator": "is_blank", "object_attribute_id": "status", "value": null}]}]}`,
			want: `(AND (is_present Title) (is_blank Status))`,
		},
		{
			name: "ordering tokens",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "greater", "object_attribute_id": "amount", "value": 10}, {"operator": "greater_or_equal", "object_attribute_id": "amount", "value": 10.50}, {"operator": "less", "object_attribute_id": "amount", "value": 1e3}, {"operator": "less_or_equal", "object_attribute_id": "amount", "value": -2}]}]}`,
			want: `(AND (greater_than Amount 10) (greater_than_equal Amount 10.50) (less_than Amount 1e3) (less_than_equal Amount -2))`,
		},
		{
			name: "unknown attribute keeps value",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "contain", "object_attribute_id": "nope", "value": "a<b"}]}]}`,
			want: `(AND (contain not_found "a<b"))`,
		},
		{
			name: "nested children",
			doc: `{"search_query_groups": [{"operator": "OR",
				"search_query_conditions": [{"operator": "this_week", "object_attribute_id": "due"}],
				"children": [
					{"operator": "NOT", "search_query_conditions": [{"operator": "is_true", "object_attribute_id": "title"}]},
					{"operator": "AND", "children": [{"operator": "OR", "search_query_conditions": [{"operator": "between", "object_attribute_id": "amount", "value": [1, 5]}]}]}
				]}]}`,
			want: `(OR (this_week Due Date) (NOT (is_true Title)) (AND (OR (between Amount [1,5]))))`,
		},
		{
			name: "multiple top-level groups",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "today", "object_attribute_id": "due"}]}, {"operator": "NOT", "search_query_conditions": [{"operator": "address", "object_attribute_id": "title", "value": {"city": "Oslo"}}]}]}`,
			want: `(AND (today Due Date)) (NOT (address Title {"city":"Oslo"}))`,
		},
		{
			name: "empty group",
			doc:  `{"search_query_groups": [{"operator": "AND"}]}`,
			want: `(AND)`,
		},
		{
			name: "empty condition list",
			doc:  `{"search_query_groups": [{"operator": "AND", "search_query_conditions": []}]}`,
			want: `(AND )`,
		},
		{
			name: "no groups",
			doc:  `{"search_query_groups": []}`,
			want: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := Translate(q, richTable(), nil); got != tt.want {
				t.Errorf("Translate() = %s\nwant          %s", got, tt.want)
			}
		})
	}
}

func TestTranslate_Diagnostics(t *testing.T) {
	q, err := Parse([]byte(`{"search_query_groups": [{"operator": "AND", "search_query_conditions": [
		{"operator": "equal", "object_attribute_id": "ghost", "value": 1},
		{"operator": "equal", "object_attribute_id": "status", "value": "zz"}
	]}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	sink := diag.NewCollector()
	Translate(q, richTable(), sink)

	if sink.Count(diag.UnknownAttribute) != 1 {
		t.Errorf("unknown attribute diagnostics = %d, want 1", sink.Count(diag.UnknownAttribute))
	}
	if sink.Count(diag.PicklistOptionNotFound) != 1 {
		t.Errorf("option diagnostics = %d, want 1", sink.Count(diag.PicklistOptionNotFound))
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing groups", `{}`},
		{"bad group operator", `{"search_query_groups": [{"operator": "XOR"}]}`},
		{"lowercase group operator", `{"search_query_groups": [{"operator": "and"}]}`},
		{"missing group operator", `{"search_query_groups": [{}]}`},
		{"bad condition operator", `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "like", "object_attribute_id": "x"}]}]}`},
		{"missing attribute id", `{"search_query_groups": [{"operator": "AND", "search_query_conditions": [{"operator": "equal"}]}]}`},
		{"bad child", `{"search_query_groups": [{"operator": "AND", "children": [{"operator": "MAYBE"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestOperatorTokens(t *testing.T) {
	if len(operatorTokens) != 31 {
		t.Errorf("len(operatorTokens) = %d, want 31", len(operatorTokens))
	}
	for op, token := range operatorTokens {
		if token == "" {
			t.Errorf("operator %q has no token", op)
		}
	}
}
