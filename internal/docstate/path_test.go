package docstate

import (
	"reflect"
	"testing"
)

func sampleDoc() Document {
	return Document{
		"count": 1.0,
		"user": map[string]any{
			"name": "Ada",
			"profile": map[string]any{
				"theme": "dark",
			},
		},
		"tags": []any{"a", "b"},
	}
}

func TestLookup(t *testing.T) {
	doc := sampleDoc()

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		// simple field
		{"top level number", "count", 1.0, true},
		{"top level list", "tags", []any{"a", "b"}, true},

		// nested fields
		{"nested string", "user.name", "Ada", true},
		{"deeply nested", "user.profile.theme", "dark", true},

		// missing
		{"missing top level", "nope", nil, false},
		{"missing nested", "user.email", nil, false},
		{"through scalar", "count.value", nil, false},
		{"through list", "tags.0", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(doc, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup_EmptyPathReturnsDocument(t *testing.T) {
	doc := sampleDoc()

	got, ok := Lookup(doc, "  ")
	if !ok {
		t.Fatal("Lookup(\"\") ok = false, want true")
	}
	if !reflect.DeepEqual(got, map[string]any(doc)) {
		t.Errorf("Lookup(\"\") = %v, want whole document", got)
	}
}

func TestLookup_NilDocument(t *testing.T) {
	if _, ok := Lookup(nil, "a"); ok {
		t.Error("Lookup(nil, \"a\") ok = true, want false")
	}
}

func TestSelector(t *testing.T) {
	sel := Selector("user.name")

	if got := sel(sampleDoc()); got != "Ada" {
		t.Errorf("Selector(user.name) = %v, want Ada", got)
	}
	if got := Selector("missing")(sampleDoc()); got != nil {
		t.Errorf("Selector(missing) = %v, want nil", got)
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"", false},
		{"a", false},
		{"a.b.c", false},
		{"a..b", true},
		{".a", true},
		{"a.", true},
		{"a. .b", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
