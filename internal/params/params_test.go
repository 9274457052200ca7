package params

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"
)

func TestAggregate_HeaderSkip(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		wantKeys []string
	}{
		{
			name:     "non-JSON first cell treated as header",
			cells:    []string{"Parameters", `{"a": 1}`},
			wantKeys: []string{"a"},
		},
		{
			name:     "JSON first cell processed",
			cells:    []string{`{"a": 1}`, `{"b": 2}`},
			wantKeys: []string{"a", "b"},
		},
		{
			name:     "empty input",
			cells:    nil,
			wantKeys: nil,
		},
		{
			name:     "blank cells skipped",
			cells:    []string{`{"a": 1}`, "", "   ", `{"b": 2}`},
			wantKeys: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Aggregate(tt.cells)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			got := set.Keys()
			if len(got) == 0 {
				got = nil
			}
			if !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("Keys() = %v, want %v", got, tt.wantKeys)
			}
		})
	}
}

func TestAggregate_DuplicateKeysBecomeLists(t *testing.T) {
	set, err := Aggregate([]string{
		`{"oli": {"n": 1}}`,
		`{"oli": {"n": 2}}`,
		`{"oli": {"n": 3}}`,
		`{"other": "x"}`,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	oli, ok := set.Get("oli")
	if !ok {
		t.Fatal("key oli not found")
	}
	if !oli.IsList() {
		t.Fatal("oli should be a list after three occurrences")
	}
	items := oli.Norm()
	if len(items) != 3 {
		t.Fatalf("len(oli) = %d, want 3", len(items))
	}
	// insertion order preserved
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("oli[%d] = %T, want object", i, item)
		}
		if got := fmt.Sprintf("%v", obj["n"]); got != strconv.Itoa(i+1) {
			t.Errorf("oli[%d].n = %v, want %d", i, obj["n"], i+1)
		}
	}

	other, _ := set.Get("other")
	if other.IsList() {
		t.Error("single-occurrence key should stay scalar")
	}
	if other.Scalar() != "x" {
		t.Errorf("other = %v, want x", other.Scalar())
	}
	if norm := other.Norm(); len(norm) != 1 || norm[0] != "x" {
		t.Errorf("other.Norm() = %v, want [x]", norm)
	}
}

func TestAggregate_ArrayValueNormalizesToElements(t *testing.T) {
	set, err := Aggregate([]string{
		`{"oli": [{"n": 1}, {"n": 2}, {"n": 3}]}`,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	oli, ok := set.Get("oli")
	if !ok {
		t.Fatal("key oli not found")
	}
	if oli.IsList() {
		t.Error("single-occurrence key should stay scalar even for an array value")
	}
	items := oli.Norm()
	if len(items) != 3 {
		t.Fatalf("len(oli.Norm()) = %d, want 3", len(items))
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("oli[%d] = %T, want object", i, item)
		}
		if got := fmt.Sprintf("%v", obj["n"]); got != strconv.Itoa(i+1) {
			t.Errorf("oli[%d].n = %v, want %d", i, obj["n"], i+1)
		}
	}
}

func TestAggregate_ArrayValueThenDuplicateMerges(t *testing.T) {
	set, err := Aggregate([]string{
		`{"oli": [{"n": 1}, {"n": 2}]}`,
		`{"oli": {"n": 3}}`,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	oli, _ := set.Get("oli")
	if !oli.IsList() {
		t.Fatal("oli should be a list after a second occurrence")
	}
	items := oli.Norm()
	if len(items) != 3 {
		t.Fatalf("len(oli.Norm()) = %d, want 3", len(items))
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("oli[%d] = %T, want object", i, item)
		}
		if got := fmt.Sprintf("%v", obj["n"]); got != strconv.Itoa(i+1) {
			t.Errorf("oli[%d].n = %v, want %d", i, obj["n"], i+1)
		}
	}
}

func TestAggregate_DuplicateKeyWithinCellKeepsLastValue(t *testing.T) {
	set, err := Aggregate([]string{`{"a": 1, "b": 2, "a": 3}`})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	a, ok := set.Get("a")
	if !ok {
		t.Fatal("key a not found")
	}
	if a.IsList() {
		t.Errorf("a.Norm() = %v, want single scalar from last occurrence", a.Norm())
	}
	if got := fmt.Sprintf("%v", a.Scalar()); got != "3" {
		t.Errorf("a = %v, want 3", a.Scalar())
	}
	want := []string{"a", "b"}
	if !reflect.DeepEqual(set.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", set.Keys(), want)
	}
}

func TestAggregate_ParseErrorCarriesRow(t *testing.T) {
	_, err := Aggregate([]string{"Parameters", `{"a": 1}`, `{broken`})
	if err == nil {
		t.Fatal("Aggregate() expected error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %T, want *ParseError", err)
	}
	if parseErr.Row != 3 {
		t.Errorf("ParseError.Row = %d, want 3", parseErr.Row)
	}
}

func TestAggregate_KeyOrderWithinCell(t *testing.T) {
	set, err := Aggregate([]string{`{"z": 1, "a": 2, "m": 3}`})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	want := []string{"z", "a", "m"}
	if !reflect.DeepEqual(set.Keys(), want) {
		t.Errorf("Keys() = %v, want %v", set.Keys(), want)
	}
}

func TestInputSheet(t *testing.T) {
	tests := []struct {
		name    string
		cells   []string
		want    string
		wantErr bool
	}{
		{
			name:  "present",
			cells: []string{`{"Input Sheet": {"Name": "Opp1"}}`},
			want:  "Opp1",
		},
		{
			name:    "missing",
			cells:   []string{`{"oli": {}}`},
			wantErr: true,
		},
		{
			name:    "wrong shape",
			cells:   []string{`{"Input Sheet": "Opp1"}`},
			wantErr: true,
		},
		{
			name:    "empty name",
			cells:   []string{`{"Input Sheet": {"Name": ""}}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Aggregate(tt.cells)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			got, err := set.InputSheet()
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("InputSheet() error = %v, want *ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("InputSheet() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("InputSheet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderRow(t *testing.T) {
	tests := []struct {
		name    string
		cells   []string
		want    int
		wantErr bool
	}{
		{
			name:  "present",
			cells: []string{`{"Table Header Row": {"Name": 1}}`},
			want:  1,
		},
		{
			name:    "missing",
			cells:   []string{`{"Input Sheet": {"Name": "x"}}`},
			wantErr: true,
		},
		{
			name:    "not a number",
			cells:   []string{`{"Table Header Row": {"Name": "first"}}`},
			wantErr: true,
		},
		{
			name:    "zero row",
			cells:   []string{`{"Table Header Row": {"Name": 0}}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Aggregate(tt.cells)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			got, err := set.HeaderRow()
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("HeaderRow() error = %v, want *ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("HeaderRow() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HeaderRow() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGroups_ExcludesReservedKeys(t *testing.T) {
	set, err := Aggregate([]string{
		`{"Input Sheet": {"Name": "Opp1"}}`,
		`{"Table Header Row": {"Name": 1}}`,
		`{"oli": {"object_label": "Product", "object_api_name": "Product__c"}}`,
		`{"extras": {"object_label": "Notes", "object_api_name": "Notes__c"}}`,
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	want := []string{"oli", "extras"}
	if !reflect.DeepEqual(set.Groups(), want) {
		t.Errorf("Groups() = %v, want %v", set.Groups(), want)
	}
}
