package mapping

import (
	"reflect"
	"testing"

	"github.com/evanrobinson2/olisync/internal/params"
)

func mustAggregate(t *testing.T, cells ...string) *params.Set {
	t.Helper()
	set, err := params.Aggregate(cells)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	return set
}

func TestResolve(t *testing.T) {
	header := []string{"Product", "Qty", " Price ", "Notes"}

	tests := []struct {
		name  string
		cells []string
		want  []Group
	}{
		{
			name: "single entry group",
			cells: []string{
				`{"oli": {"object_label": "Product", "object_api_name": "Product__c"}}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{{Field: "Product__c", Index: 0}}},
			},
		},
		{
			name: "multi entry group keeps configuration order",
			cells: []string{
				`{"oli": {"object_label": "Qty", "object_api_name": "Quantity__c"}}`,
				`{"oli": {"object_label": "Product", "object_api_name": "Product__c"}}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{
					{Field: "Quantity__c", Index: 1},
					{Field: "Product__c", Index: 0},
				}},
			},
		},
		{
			name: "array of entries in one cell",
			cells: []string{
				`{"oli": [
					{"object_label": "Product", "object_api_name": "Product__c"},
					{"object_label": "Qty", "object_api_name": "Quantity__c"}
				]}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{
					{Field: "Product__c", Index: 0},
					{Field: "Quantity__c", Index: 1},
				}},
			},
		},
		{
			name: "label trimmed before match, header trimmed too",
			cells: []string{
				`{"oli": {"object_label": "  Price  ", "object_api_name": "Price__c"}}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{{Field: "Price__c", Index: 2}}},
			},
		},
		{
			name: "unmatched label dropped without failing",
			cells: []string{
				`{"oli": {"object_label": "Product", "object_api_name": "Product__c"}}`,
				`{"oli": {"object_label": "Missing", "object_api_name": "Missing__c"}}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{{Field: "Product__c", Index: 0}}},
			},
		},
		{
			name: "entry missing api name skipped",
			cells: []string{
				`{"oli": {"object_label": "Product"}}`,
			},
			want: []Group{{Key: "oli"}},
		},
		{
			name: "entry missing label skipped",
			cells: []string{
				`{"oli": {"object_api_name": "Product__c"}}`,
			},
			want: []Group{{Key: "oli"}},
		},
		{
			name: "reserved keys not treated as groups",
			cells: []string{
				`{"Input Sheet": {"Name": "Opp1"}}`,
				`{"Table Header Row": {"Name": 1}}`,
				`{"oli": {"object_label": "Notes", "object_api_name": "Notes__c"}}`,
			},
			want: []Group{
				{Key: "oli", Columns: []Column{{Field: "Notes__c", Index: 3}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := Resolve(mustAggregate(t, tt.cells...), header, nil)
			if !reflect.DeepEqual(resolved.Groups(), tt.want) {
				t.Errorf("Groups() = %+v, want %+v", resolved.Groups(), tt.want)
			}
		})
	}
}

func TestResolve_CaseSensitive(t *testing.T) {
	set := mustAggregate(t,
		`{"oli": {"object_label": "product", "object_api_name": "Product__c"}}`,
	)
	resolved := Resolve(set, []string{"Product"}, nil)
	group, ok := resolved.Group("oli")
	if !ok {
		t.Fatal("group oli not resolved")
	}
	if len(group.Columns) != 0 {
		t.Errorf("case-mismatched label matched: %+v", group.Columns)
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	set := mustAggregate(t,
		`{"oli": {"object_label": "Amount", "object_api_name": "Amount__c"}}`,
	)
	resolved := Resolve(set, []string{"Amount", "Amount"}, nil)
	group, _ := resolved.Group("oli")
	if len(group.Columns) != 1 || group.Columns[0].Index != 0 {
		t.Errorf("Columns = %+v, want single match at index 0", group.Columns)
	}
}
