package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		old  FieldSet
		new  FieldSet
		want FieldDelta
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  FieldSet{"a": "1"},
			want: FieldDelta{"a": "1"},
		},
		{
			name: "No Changes",
			old:  FieldSet{"a": "1", "b": true},
			new:  FieldSet{"a": "1", "b": true},
			want: nil,
		},
		{
			name: "Numeric Text Equals Number",
			old:  FieldSet{"dailyRentalRate": 150.0},
			new:  FieldSet{"dailyRentalRate": "150"},
			want: nil,
		},
		{
			name: "Added & Modified",
			old:  FieldSet{"a": "1", "b": "old"},
			new:  FieldSet{"a": "1", "b": "new", "c": true},
			want: FieldDelta{"b": "new", "c": true},
		},
		{
			name: "Deletion",
			old:  FieldSet{"a": "1", "b": "2"},
			new:  FieldSet{"a": "1"},
			want: FieldDelta{"b": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		diff := Diff(FieldSet{"a": "1", "b": "2"}, FieldSet{"a": "1"})
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func TestFieldSetAccessors(t *testing.T) {
	fs := FieldSet{
		"rate":    "150.50",
		"days":    3.0,
		"enabled": "yes",
		"blank":   "  ",
		"bad":     "abc",
	}

	if v, ok := fs.Float("rate"); !ok || v != 150.5 {
		t.Errorf("Float(rate) = %v, %v", v, ok)
	}
	if got := fs.String("days"); got != "3" {
		t.Errorf("String(days) = %q, want %q", got, "3")
	}
	if !fs.Bool("enabled") {
		t.Error("Bool(enabled) should be true")
	}
	if !fs.IsEmpty("blank") || !fs.IsEmpty("missing") {
		t.Error("IsEmpty should be true for blank and missing keys")
	}
	if _, ok := fs.Float("bad"); ok {
		t.Error("Float(bad) should not parse")
	}
	if _, ok := Number("NaN"); ok {
		t.Error("NaN must not count as a number")
	}
}
