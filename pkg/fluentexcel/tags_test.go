package fluentexcel

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTag_FormatConsumesRest(t *testing.T) {
	items := splitTag("index:3, title:Salary ,format:#,##0.00")
	require.Len(t, items, 3)
	assert.Equal(t, tagItem{key: "index", value: "3"}, items[0])
	assert.Equal(t, tagItem{key: "title", value: "Salary"}, items[1])
	assert.Equal(t, tagItem{key: "format", value: "#,##0.00"}, items[2])
}

func TestParseFieldTag(t *testing.T) {
	tests := map[string]struct {
		tag  string
		want FieldSpec
	}{
		"index and title": {
			tag:  "index:2,title:Name",
			want: FieldSpec{Index: 2, Title: "Name"},
		},
		"auto merge": {
			tag:  "auto,title:Dept,merge",
			want: FieldSpec{Index: IndexUnset, Title: "Dept", AutoIndex: true, AllowMerge: true},
		},
		"ignored both ways": {
			tag:  "-",
			want: FieldSpec{Index: IndexUnset, ExportIgnored: true, ImportIgnored: true},
		},
		"import only": {
			tag:  "index:4,export_ignore",
			want: FieldSpec{Index: 4, ExportIgnored: true},
		},
		"format with commas": {
			tag:  "index:1,format:#,##0.00;[Red]-#,##0.00",
			want: FieldSpec{Index: 1, Formatter: "#,##0.00;[Red]-#,##0.00"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseFieldTag(tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFieldTag_Malformed(t *testing.T) {
	_, err := parseFieldTag("index:abc")
	assert.Error(t, err)

	_, err = parseFieldTag("index:1,colour:red")
	assert.Error(t, err)
}

type taggedInvoice struct {
	_ struct{} `excel:"statistics,name:Total,formula:SUM,columns:2 3"`
	_ struct{} `excel:"filter,first_col:0,last_col:3"`
	_ struct{} `excel:"freeze,row_split:1,top_row:1"`
	_ struct{} `excel:"skip_invalid_rows"`
	_ struct{} `excel:"ignore_whitespace_rows"`

	Number   string  `excel:"index:0,title:Invoice"`
	Customer string  `excel:"index:1,merge"`
	Net      float64 `excel:"index:2,format:0.00"`
	Tax      float64 `excel:"index:3,format:0.00"`
	Notes    string
}

func TestParseTypeTags_Directives(t *testing.T) {
	m, err := parseTypeTags(reflect.TypeOf(taggedInvoice{}))
	require.NoError(t, err)

	assert.Len(t, m.fields, 4)
	assert.NotContains(t, m.fields, "Notes")

	d := m.directives
	require.Len(t, d.Statistics, 1)
	assert.Equal(t, StatisticsConfig{Name: "Total", Formula: "SUM", Columns: []int{2, 3}}, d.Statistics[0])
	require.Len(t, d.Filters, 1)
	assert.Nil(t, d.Filters[0].LastRow)
	assert.Equal(t, 3, d.Filters[0].LastCol)
	require.Len(t, d.Freezes, 1)
	assert.Equal(t, FreezeConfig{RowSplit: 1, TopRow: 1}, d.Freezes[0])
	assert.True(t, d.SkipInvalidRows)
	assert.True(t, d.IgnoreWhitespaceRows)
}

func TestParseTypeTags_BadDirective(t *testing.T) {
	type broken struct {
		_    struct{} `excel:"statistics,name:Total"`
		Name string   `excel:"index:0"`
	}
	_, err := parseTypeTags(reflect.TypeOf(broken{}))
	assert.ErrorIs(t, err, ErrConfiguration)
}
