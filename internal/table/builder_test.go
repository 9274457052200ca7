package table

import (
	"reflect"
	"testing"

	"github.com/evanrobinson2/olisync/internal/mapping"
)

var oliGroups = []mapping.Group{
	{Key: "oli", Columns: []mapping.Column{
		{Field: "Product__c", Index: 0},
		{Field: "Quantity__c", Index: 1},
	}},
}

func TestBuildAll_StopsAtBlankKeyCell(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
		want int
	}{
		{
			name: "all rows valid",
			rows: [][]any{{"A", 1}, {"B", 2}, {"C", 3}},
			want: 3,
		},
		{
			name: "empty string terminates",
			rows: [][]any{{"A", 1}, {"", 2}, {"C", 3}},
			want: 1,
		},
		{
			name: "nil cell terminates",
			rows: [][]any{{"A", 1}, {nil, 2}, {"C", 3}},
			want: 1,
		},
		{
			name: "empty row terminates",
			rows: [][]any{{"A", 1}, {}, {"C", 3}},
			want: 1,
		},
		{
			name: "blank first row yields nothing",
			rows: [][]any{{"", 1}, {"B", 2}},
			want: 0,
		},
		{
			name: "content after the blank is ignored",
			rows: [][]any{{"A", 1}, {"B", 2}, {""}, {"D", 4}, {"E", 5}},
			want: 2,
		},
		{
			name: "no rows",
			rows: nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewBuilder(oliGroups, tt.rows).BuildAll()
			if len(got) != tt.want {
				t.Errorf("BuildAll() returned %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestRecords_RestartablePerCall(t *testing.T) {
	b := NewBuilder(oliGroups, [][]any{{"A", 1}, {"B", 2}})

	for pass := 0; pass < 2; pass++ {
		var names []any
		for rec := range b.Records() {
			group, _ := rec.Group("oli")
			names = append(names, group.Fields[0].Value)
		}
		if !reflect.DeepEqual(names, []any{"A", "B"}) {
			t.Errorf("pass %d: names = %v, want [A B]", pass, names)
		}
	}
}

func TestBuild_NestingByCardinality(t *testing.T) {
	groups := []mapping.Group{
		{Key: "item", Columns: []mapping.Column{{Field: "Name__c", Index: 0}}},
		{Key: "oli", Columns: []mapping.Column{
			{Field: "Product__c", Index: 1},
			{Field: "Quantity__c", Index: 2},
		}},
		{Key: "empty", Columns: nil},
	}

	recs := NewBuilder(groups, [][]any{{"row1", "Widget", 10}}).BuildAll()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]

	if len(rec.Groups) != 2 {
		t.Fatalf("record has %d groups, want 2 (zero-column group omitted)", len(rec.Groups))
	}

	item, ok := rec.Group("item")
	if !ok || item.Nested() {
		t.Fatalf("item group should be a single field, got %+v", item)
	}
	if item.Single.Name != "Name__c" || item.Single.Value != "row1" {
		t.Errorf("item.Single = %+v, want Name__c=row1", item.Single)
	}

	oli, ok := rec.Group("oli")
	if !ok || !oli.Nested() {
		t.Fatalf("oli group should be nested, got %+v", oli)
	}
	want := []Field{
		{Name: "Product__c", Value: "Widget"},
		{Name: "Quantity__c", Value: 10},
	}
	if !reflect.DeepEqual(oli.Fields, want) {
		t.Errorf("oli.Fields = %+v, want %+v", oli.Fields, want)
	}

	if _, ok := rec.Group("empty"); ok {
		t.Error("zero-column group should be omitted from the record")
	}
}

func TestBuild_ShortRowsReadAsAbsent(t *testing.T) {
	recs := NewBuilder(oliGroups, [][]any{{"OnlyProduct"}}).BuildAll()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	oli, _ := recs[0].Group("oli")
	if oli.Fields[1].Value != nil {
		t.Errorf("out-of-range cell = %v, want nil", oli.Fields[1].Value)
	}
}
