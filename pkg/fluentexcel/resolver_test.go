package fluentexcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mixedIndexRecord struct {
	First  string `excel:"auto,title:First"`
	Fixed  string `excel:"index:0,title:Fixed"`
	Second string `excel:"auto,title:Second"`
	Third  string `excel:"index:2,title:Third"`
	Fourth string `excel:"auto"`
}

func TestResolve_AutoIndexAvoidsExplicitColumns(t *testing.T) {
	fields, _, err := Resolve[mixedIndexRecord](NewSetting(), Export)
	require.NoError(t, err)

	got := map[string]int{}
	for _, f := range fields {
		got[f.Name] = f.Spec.Index
	}
	assert.Equal(t, map[string]int{
		"First":  1,
		"Fixed":  0,
		"Second": 3,
		"Third":  2,
		"Fourth": 4,
	}, got)
	assert.Equal(t, "Fourth", fields[4].Spec.Title)
}

func TestResolve_Deterministic(t *testing.T) {
	s := NewSetting()
	first, _, err := Resolve[mixedIndexRecord](s, Export)
	require.NoError(t, err)
	second, _, err := Resolve[mixedIndexRecord](s, Export)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Spec.Index, second[i].Spec.Index)
	}
}

func TestResolve_ImportKeepsAutoIndexUnresolved(t *testing.T) {
	fields, _, err := Resolve[mixedIndexRecord](NewSetting(), Import)
	require.NoError(t, err)
	for _, f := range fields {
		if f.Spec.AutoIndex {
			assert.Equal(t, IndexUnset, f.Spec.Index, f.Name)
		}
	}
}

func TestResolve_IndexCollision(t *testing.T) {
	type clash struct {
		A string `excel:"index:3"`
		B string `excel:"index:3"`
	}
	_, _, err := Resolve[clash](NewSetting(), Export)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, _, err = Resolve[clash](NewSetting(), Import)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolve_CollisionWithIgnoredFieldIsAllowed(t *testing.T) {
	type partial struct {
		A string `excel:"index:3"`
		B string `excel:"index:3,export_ignore"`
	}
	fields, _, err := Resolve[partial](NewSetting(), Export)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "A", fields[0].Name)

	_, _, err = Resolve[partial](NewSetting(), Import)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolve_ExplicitOnlyPolicy(t *testing.T) {
	type loose struct {
		Mapped   string `excel:"index:0"`
		Unmapped string
		hidden   string
	}
	fields, _, err := Resolve[loose](NewSetting(), Export)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Mapped", fields[0].Name)

	type bare struct {
		Name string
	}
	_, _, err = Resolve[bare](NewSetting(), Export)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolve_MissingIndex(t *testing.T) {
	type noIndex struct {
		Name string `excel:"title:Name"`
	}
	_, _, err := Resolve[noIndex](NewSetting(), Export)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolve_FluentOverridesTags(t *testing.T) {
	s := NewSetting()
	For[taggedInvoice](s).
		HasFreeze(0, 2, 0, 2).
		Property("Customer").HasExcelIndex(5).HasExcelTitle("Client")

	fields, d, err := Resolve[taggedInvoice](s, Export)
	require.NoError(t, err)

	byName := map[string]FieldSpec{}
	for _, f := range fields {
		byName[f.Name] = f.Spec
	}
	assert.Equal(t, 5, byName["Customer"].Index)
	assert.Equal(t, "Client", byName["Customer"].Title)
	assert.False(t, byName["Customer"].AllowMerge, "fluent property replaces the whole tag")
	assert.Equal(t, "Invoice", byName["Number"].Title, "untouched fields keep their tag")

	// fluent directives replace tag directives wholesale
	assert.Empty(t, d.Statistics)
	assert.False(t, d.SkipInvalidRows)
	require.Len(t, d.Freezes, 1)
	assert.Equal(t, 2, d.Freezes[0].RowSplit)
}

func TestResolve_FluentMapsUntaggedField(t *testing.T) {
	s := NewSetting()
	For[taggedInvoice](s).Property("Notes").HasAutoIndex()

	fields, _, err := Resolve[taggedInvoice](s, Export)
	require.NoError(t, err)
	require.Len(t, fields, 5)
	assert.Equal(t, "Notes", fields[4].Name)
	assert.Equal(t, 4, fields[4].Spec.Index)
}

func TestResolve_UnknownFluentProperty(t *testing.T) {
	s := NewSetting()
	For[taggedInvoice](s).Property("Missing").HasExcelIndex(9)

	_, _, err := Resolve[taggedInvoice](s, Export)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolve_ReturnsCopies(t *testing.T) {
	s := NewSetting()
	For[taggedInvoice](s).HasStatistics("Total", "SUM", 2)

	_, d, err := Resolve[taggedInvoice](s, Export)
	require.NoError(t, err)
	d.Statistics[0].Columns[0] = 7

	_, again, err := Resolve[taggedInvoice](s, Export)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, again.Statistics[0].Columns)
}

func TestAdjustAutoIndex(t *testing.T) {
	tests := []struct {
		name string
		in   []FieldSpec
		want []int
	}{
		{
			name: "all auto",
			in:   []FieldSpec{{Index: -1, AutoIndex: true}, {Index: -1, AutoIndex: true}},
			want: []int{0, 1},
		},
		{
			name: "explicit declared after auto",
			in:   []FieldSpec{{Index: -1, AutoIndex: true}, {Index: 0}, {Index: 1}},
			want: []int{2, 0, 1},
		},
		{
			name: "gap is filled",
			in:   []FieldSpec{{Index: 1}, {Index: -1, AutoIndex: true}, {Index: -1, AutoIndex: true}},
			want: []int{1, 0, 2},
		},
		{
			name: "non auto stays unset",
			in:   []FieldSpec{{Index: -1}, {Index: -1, AutoIndex: true}},
			want: []int{-1, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			AdjustAutoIndex(tc.in)
			got := make([]int, len(tc.in))
			for i, s := range tc.in {
				got[i] = s.Index
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
