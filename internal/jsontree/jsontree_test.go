package jsontree

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iancoleman/orderedmap"
)

type mapReplacer map[string]string

func (m mapReplacer) Lookup(value string) (string, bool) {
	name, ok := m[value]
	return name, ok
}

func decode(t *testing.T, data string) *orderedmap.OrderedMap {
	t.Helper()
	doc := orderedmap.New()
	doc.SetEscapeHTML(false)
	if err := json.Unmarshal([]byte(data), doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func encode(t *testing.T, doc *orderedmap.OrderedMap) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestRewriteFieldTopLevel(t *testing.T) {
	doc := decode(t, `{"initial_controller": "NY_A_CTR", "other": "NY_A_CTR"}`)
	rep := mapReplacer{"NY_A_CTR": "ZNY 26 Lancaster"}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	if rec.Len() != 1 {
		t.Fatalf("expected 1 change, got %d", rec.Len())
	}
	change := rec.Changes()[0]
	want := Change{Path: "/initial_controller", Old: "NY_A_CTR", New: "ZNY 26 Lancaster"}
	if diff := cmp.Diff(want, change); diff != "" {
		t.Errorf("change mismatch (-want +got):\n%s", diff)
	}

	got := encode(t, doc)
	wantJSON := `{"initial_controller":"ZNY 26 Lancaster","other":"NY_A_CTR"}`
	if got != wantJSON {
		t.Errorf("document = %s, want %s", got, wantJSON)
	}
}

func TestRewriteFieldNestedObjectsAndArrays(t *testing.T) {
	doc := decode(t, `{
		"scenarios": {
			"one": {"initial_controller": "NY_B_CTR"},
			"two": {"list": [{"initial_controller": "NY_C_CTR"}, 42, "NY_B_CTR"]}
		}
	}`)
	rep := mapReplacer{
		"NY_B_CTR": "ZNY 56 Kennedy",
		"NY_C_CTR": "ZNY 55 Yardley",
	}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	want := []Change{
		{Path: "/scenarios/one/initial_controller", Old: "NY_B_CTR", New: "ZNY 56 Kennedy"},
		{Path: "/scenarios/two/list/0/initial_controller", Old: "NY_C_CTR", New: "ZNY 55 Yardley"},
	}
	if diff := cmp.Diff(want, rec.Changes()); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteFieldIgnoresNonStringValues(t *testing.T) {
	doc := decode(t, `{"initial_controller": 42, "nested": {"initial_controller": ["NY_A_CTR"]}}`)
	rep := mapReplacer{"NY_A_CTR": "ZNY 26 Lancaster"}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	if rec.Len() != 0 {
		t.Errorf("expected no changes, got %v", rec.Changes())
	}
}

func TestRewriteFieldNoChangeWhenValueAlreadyCurrent(t *testing.T) {
	doc := decode(t, `{"initial_controller": "ZNY 26 Lancaster"}`)
	rep := mapReplacer{"ZNY 26 Lancaster": "ZNY 26 Lancaster"}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	if rec.Len() != 0 {
		t.Errorf("expected no changes when old equals new, got %v", rec.Changes())
	}
}

func TestRewriteFieldPreservesKeyOrder(t *testing.T) {
	src := `{"zulu":1,"initial_controller":"NY_A_CTR","alpha":2,"mike":{"initial_controller":"NY_B_CTR","beta":3}}`
	doc := decode(t, src)
	rep := mapReplacer{
		"NY_A_CTR": "ZNY 26 Lancaster",
		"NY_B_CTR": "ZNY 56 Kennedy",
	}

	RewriteField(doc, "initial_controller", rep, &ChangeRecorder{})

	got := encode(t, doc)
	want := `{"zulu":1,"initial_controller":"ZNY 26 Lancaster","alpha":2,"mike":{"initial_controller":"ZNY 56 Kennedy","beta":3}}`
	if got != want {
		t.Errorf("key order not preserved:\n got %s\nwant %s", got, want)
	}
}

func TestRewriteFieldEscapesPointerTokens(t *testing.T) {
	doc := decode(t, `{"a/b": {"c~d": {"initial_controller": "NY_A_CTR"}}}`)
	rep := mapReplacer{"NY_A_CTR": "ZNY 26 Lancaster"}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	if rec.Len() != 1 {
		t.Fatalf("expected 1 change, got %d", rec.Len())
	}
	if got := rec.Changes()[0].Path; got != "/a~1b/c~0d/initial_controller" {
		t.Errorf("pointer = %q, want %q", got, "/a~1b/c~0d/initial_controller")
	}
}

func TestSetByPointer(t *testing.T) {
	doc := decode(t, `{"scenarios": {"one": {"initial_controller": "ZNY 26 Lancaster"}}}`)

	err := SetByPointer(doc, "/scenarios/one/initial_controller", "ZNY 26 Lancaster", "NY_A_CTR")
	if err != nil {
		t.Fatalf("SetByPointer returned error: %v", err)
	}
	got := encode(t, doc)
	want := `{"scenarios":{"one":{"initial_controller":"NY_A_CTR"}}}`
	if got != want {
		t.Errorf("document = %s, want %s", got, want)
	}
}

func TestSetByPointerThroughArray(t *testing.T) {
	doc := decode(t, `{"list": [{"initial_controller": "X"}]}`)

	if err := SetByPointer(doc, "/list/0/initial_controller", "X", "Y"); err != nil {
		t.Fatalf("SetByPointer returned error: %v", err)
	}
	if got := encode(t, doc); got != `{"list":[{"initial_controller":"Y"}]}` {
		t.Errorf("document = %s", got)
	}
}

func TestSetByPointerValueMismatch(t *testing.T) {
	doc := decode(t, `{"initial_controller": "EDITED_SINCE"}`)

	err := SetByPointer(doc, "/initial_controller", "ZNY 26 Lancaster", "NY_A_CTR")
	if err == nil {
		t.Fatal("expected value mismatch error")
	}
	if !IsValueMismatch(err) {
		t.Errorf("IsValueMismatch(%v) = false, want true", err)
	}
	perr, ok := err.(*PointerError)
	if !ok || perr.Found != "EDITED_SINCE" {
		t.Errorf("expected Found = EDITED_SINCE, got %+v", err)
	}
	// The document is untouched on mismatch.
	if got := encode(t, doc); got != `{"initial_controller":"EDITED_SINCE"}` {
		t.Errorf("document modified on mismatch: %s", got)
	}
}

func TestSetByPointerErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		pointer  string
		wantType PointerErrorType
	}{
		{"missing field", `{"a": 1}`, "/b", PointerNotFound},
		{"missing intermediate", `{"a": {"b": "x"}}`, "/c/b", PointerNotFound},
		{"non-string field", `{"a": 42}`, "/a", TypeMismatch},
		{"parent is scalar", `{"a": 42}`, "/a/b", TypeMismatch},
		{"array index out of range", `{"a": ["x"]}`, "/a/5/f", PointerNotFound},
		{"no leading slash", `{"a": "x"}`, "a", InvalidPointer},
		{"empty pointer", `{"a": "x"}`, "", InvalidPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decode(t, tt.doc)
			err := SetByPointer(doc, tt.pointer, "x", "y")
			if err == nil {
				t.Fatal("expected error")
			}
			perr, ok := err.(*PointerError)
			if !ok {
				t.Fatalf("expected *PointerError, got %T: %v", err, err)
			}
			if perr.Type != tt.wantType {
				t.Errorf("error type = %s, want %s", perr.Type, tt.wantType)
			}
		})
	}
}

func TestSetByPointerUnescapesTokens(t *testing.T) {
	doc := decode(t, `{"a/b": {"c~d": {"f": "old"}}}`)

	if err := SetByPointer(doc, "/a~1b/c~0d/f", "old", "new"); err != nil {
		t.Fatalf("SetByPointer returned error: %v", err)
	}
	if got := encode(t, doc); got != `{"a/b":{"c~d":{"f":"new"}}}` {
		t.Errorf("document = %s", got)
	}
}

func TestRewriteFieldArrayRoot(t *testing.T) {
	doc := []interface{}{
		decode(t, `{"initial_controller": "NY_A_CTR"}`),
		"NY_A_CTR",
		decode(t, `{"nested": [{"initial_controller": "NY_B_CTR"}]}`),
	}
	rep := mapReplacer{
		"NY_A_CTR": "ZNY 26 Lancaster",
		"NY_B_CTR": "ZNY 56 Kennedy",
	}

	rec := &ChangeRecorder{}
	RewriteField(doc, "initial_controller", rep, rec)

	want := []Change{
		{Path: "/0/initial_controller", Old: "NY_A_CTR", New: "ZNY 26 Lancaster"},
		{Path: "/2/nested/0/initial_controller", Old: "NY_B_CTR", New: "ZNY 56 Kennedy"},
	}
	if diff := cmp.Diff(want, rec.Changes()); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}

	// The bare string element is not a field value and must stay.
	if doc[1] != "NY_A_CTR" {
		t.Errorf("array scalar element changed: %v", doc[1])
	}
}

func TestRewriteFieldScalarRoot(t *testing.T) {
	rec := &ChangeRecorder{}
	RewriteField("NY_A_CTR", "initial_controller", mapReplacer{"NY_A_CTR": "ZNY 26 Lancaster"}, rec)
	if rec.Len() != 0 {
		t.Errorf("scalar root produced %d changes", rec.Len())
	}
}

func TestSetByPointerArrayRoot(t *testing.T) {
	doc := []interface{}{
		decode(t, `{"initial_controller": "ZNY 26 Lancaster"}`),
	}

	if err := SetByPointer(doc, "/0/initial_controller", "ZNY 26 Lancaster", "NY_A_CTR"); err != nil {
		t.Fatalf("SetByPointer: %v", err)
	}

	obj := doc[0].(*orderedmap.OrderedMap)
	if got, _ := obj.Get("initial_controller"); got != "NY_A_CTR" {
		t.Errorf("field = %v, want NY_A_CTR", got)
	}
}
