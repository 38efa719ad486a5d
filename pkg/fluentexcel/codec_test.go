package fluentexcel

import (
	"encoding/json"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type grade string

func (g grade) Format(pattern string) string {
	return strings.ReplaceAll(pattern, "@", strings.ToUpper(string(g)))
}

func TestToCellValue(t *testing.T) {
	when := time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)
	n := 7
	var nilPtr *int

	tests := []struct {
		name      string
		value     interface{}
		formatter string
		want      CellValue
	}{
		{"nil", nil, "", CellValue{Kind: CellBlank}},
		{"nil pointer", nilPtr, "", CellValue{Kind: CellBlank}},
		{"pointer", &n, "", CellValue{Kind: CellNumber, Number: 7}},
		{"bool", true, "", CellValue{Kind: CellBool, Bool: true}},
		{"int", int16(-3), "0", CellValue{Kind: CellNumber, Number: -3}},
		{"uint", uint8(9), "", CellValue{Kind: CellNumber, Number: 9}},
		{"float", 2.5, "0.00", CellValue{Kind: CellNumber, Number: 2.5}},
		{"json number", json.Number("12.25"), "", CellValue{Kind: CellNumber, Number: 12.25}},
		{"date keeps semantics", when, "yyyy-mm-dd", CellValue{Kind: CellDate, Time: when}},
		{"formula", Formula("=SUM(A1:A2)"), "", CellValue{Kind: CellFormula, Text: "SUM(A1:A2)"}},
		{"formattable", grade("b"), "[@]", CellValue{Kind: CellText, Text: "[B]"}},
		{"formattable without formatter", grade("b"), "", CellValue{Kind: CellText, Text: "b"}},
		{"string", "hello", "", CellValue{Kind: CellText, Text: "hello"}},
		{"stringer fallback", net.IPv4(10, 0, 0, 1), "", CellValue{Kind: CellText, Text: "10.0.0.1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToCellValue(tc.value, tc.formatter))
		})
	}
}

func TestEncodeCell_AppliesConverter(t *testing.T) {
	spec := NewFieldSpec()
	spec.ValueConverter = func(row, col int, v interface{}) interface{} {
		if row == 1 && col == 2 {
			return v.(string) + "!"
		}
		return v
	}
	assert.Equal(t, "hi!", encodeCell("hi", spec, 1, 2).Text)
	assert.Equal(t, "hi", encodeCell("hi", spec, 0, 2).Text)
}

func TestCellValue_IsBlank(t *testing.T) {
	assert.True(t, CellValue{}.IsBlank())
	assert.True(t, CellValue{Kind: CellText}.IsBlank())
	assert.False(t, CellValue{Kind: CellNumber}.IsBlank())
	assert.False(t, CellValue{Kind: CellText, Text: " "}.IsBlank())
}

type level int

func (l *level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = 1
	case "high":
		*l = 2
	default:
		return assert.AnError
	}
	return nil
}

func TestCoerce(t *testing.T) {
	when := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  interface{}
		typ  reflect.Type
		want interface{}
	}{
		{"nil to zero", nil, reflect.TypeOf(0), 0},
		{"string", "abc", reflect.TypeOf(""), "abc"},
		{"number to string", 12.0, reflect.TypeOf(""), "12"},
		{"number to int", 42.0, reflect.TypeOf(0), 42},
		{"text to int", " 42 ", reflect.TypeOf(int64(0)), int64(42)},
		{"number to uint", 3.0, reflect.TypeOf(uint16(0)), uint16(3)},
		{"number to float32", 1.5, reflect.TypeOf(float32(0)), float32(1.5)},
		{"bool", true, reflect.TypeOf(false), true},
		{"number to bool", 1.0, reflect.TypeOf(false), true},
		{"text to bool", "false", reflect.TypeOf(false), false},
		{"time", when, reflect.TypeOf(time.Time{}), when},
		{"text to time", "2020-01-31", reflect.TypeOf(time.Time{}), when},
		{"text unmarshaler", "high", reflect.TypeOf(level(0)), level(2)},
		{"named string", "x", reflect.TypeOf(grade("")), grade("x")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coerce(tc.raw, tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Interface())
		})
	}
}

func TestCoerce_Pointer(t *testing.T) {
	got, err := coerce(5.0, reflect.TypeOf((*int)(nil)))
	require.NoError(t, err)
	require.False(t, got.IsNil())
	assert.Equal(t, 5, *got.Interface().(*int))
}

func TestCoerce_SerialDate(t *testing.T) {
	got, err := coerce(43861.0, reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	assert.True(t, got.Interface().(time.Time).Equal(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)))
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		typ  reflect.Type
	}{
		{"fraction to int", 1.5, reflect.TypeOf(0)},
		{"overflow int8", 300.0, reflect.TypeOf(int8(0))},
		{"negative uint", -1.0, reflect.TypeOf(uint(0))},
		{"text to int", "abc", reflect.TypeOf(0)},
		{"text to bool", "maybe", reflect.TypeOf(false)},
		{"text to time", "someday", reflect.TypeOf(time.Time{})},
		{"bad unmarshal", "medium", reflect.TypeOf(level(0))},
		{"number to struct", 1.0, reflect.TypeOf(struct{ A int }{})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coerce(tc.raw, tc.typ)
			assert.ErrorIs(t, err, ErrTypeConversion)
		})
	}
}

func TestIsDateFormat(t *testing.T) {
	tests := map[string]bool{
		"yyyy-mm-dd":          true,
		"d/m/yy h:mm":         true,
		"[h]:mm:ss":           true,
		"hh:mm AM/PM":         true,
		"0.00":                false,
		"#,##0.00":            false,
		"General":             false,
		`"day "0`:             false,
		`\d0`:                 false,
		"[Red]0.00":           false,
		"0.00;[Red]yyyy":      false,
		"[$-409]mmmm d, yyyy": true,
	}

	for code, want := range tests {
		assert.Equal(t, want, isDateFormat(code), code)
	}
}

func TestReadCell(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)

	require.NoError(t, f.SetCellStr(sheet, "A1", "text"))
	require.NoError(t, f.SetCellFloat(sheet, "B1", 3.25, -1, 64))
	require.NoError(t, f.SetCellBool(sheet, "C1", true))
	require.NoError(t, f.SetCellFloat(sheet, "D1", 43861, -1, 64))
	require.NoError(t, f.SetCellStyle(sheet, "D1", "D1", dateStyle))
	require.NoError(t, f.SetCellFormula(sheet, "E1", "B1*2"))

	tests := []struct {
		cell string
		want interface{}
	}{
		{"A1", "text"},
		{"B1", 3.25},
		{"C1", true},
		{"E1", "B1*2"},
		{"F1", nil},
	}
	for _, tc := range tests {
		got, err := readCell(f, sheet, tc.cell, nil)
		require.NoError(t, err, tc.cell)
		assert.Equal(t, tc.want, got, tc.cell)
	}

	got, err := readCell(f, sheet, "D1", nil)
	require.NoError(t, err)
	require.IsType(t, time.Time{}, got)
	assert.True(t, got.(time.Time).Equal(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)))

	got, err = readCell(f, sheet, "E1", NewFormulaEvaluator(f))
	require.NoError(t, err)
	assert.Equal(t, 6.5, got)
}

func TestParseEvaluated(t *testing.T) {
	assert.Nil(t, parseEvaluated(""))
	assert.Equal(t, 4.0, parseEvaluated("4"))
	assert.Equal(t, true, parseEvaluated("TRUE"))
	assert.Equal(t, "#DIV/0!", parseEvaluated("#DIV/0!"))
}

func TestReadCell_NumberFormatBesideDateFormat(t *testing.T) {
	tests := map[string]struct {
		dateFirst bool
	}{
		"date style created first":   {dateFirst: true},
		"number style created first": {dateFirst: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := excelize.NewFile()
			defer f.Close()

			numFmt, dateFmt := "#,##0.00", "yyyy-mm-dd"
			var numStyle, dateStyle int
			var err error
			if tc.dateFirst {
				dateStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
				require.NoError(t, err)
				numStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
				require.NoError(t, err)
			} else {
				numStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
				require.NoError(t, err)
				dateStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
				require.NoError(t, err)
			}

			require.NoError(t, f.SetCellFloat("Sheet1", "A1", 45000.5, -1, 64))
			require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", numStyle))
			require.NoError(t, f.SetCellFloat("Sheet1", "B1", 45000, -1, 64))
			require.NoError(t, f.SetCellStyle("Sheet1", "B1", "B1", dateStyle))

			amount, err := readCell(f, "Sheet1", "A1", nil)
			require.NoError(t, err)
			assert.Equal(t, 45000.5, amount)

			booked, err := readCell(f, "Sheet1", "B1", nil)
			require.NoError(t, err)
			require.IsType(t, time.Time{}, booked)
			assert.Equal(t, "2023-03-15", booked.(time.Time).Format("2006-01-02"))
		})
	}
}
