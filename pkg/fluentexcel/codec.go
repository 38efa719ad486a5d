package fluentexcel

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// CellKind enumerates the cell values the engine writes.
type CellKind int

const (
	CellBlank CellKind = iota
	CellBool
	CellNumber
	CellText
	CellDate
	CellFormula
)

// CellValue is a typed spreadsheet value. Only the member matching Kind is set.
type CellValue struct {
	Kind   CellKind
	Bool   bool
	Number float64
	Text   string
	Time   time.Time
}

// Formula marks a string as formula text. Fields or converters may return it
// to write a formula cell. The leading "=" is optional.
type Formula string

// Formattable is implemented by values that render themselves with a
// display pattern. It is consulted for fields that carry a formatter and are
// neither dates nor numbers.
type Formattable interface {
	Format(pattern string) string
}

type float64Err interface {
	Float64() (float64, error)
}

type float64Exact interface {
	Float64() (float64, bool)
}

var timeType = reflect.TypeOf(time.Time{})

// encodeCell applies the field converter and encodes the result.
func encodeCell(value interface{}, spec FieldSpec, row, col int) CellValue {
	if spec.ValueConverter != nil {
		value = spec.ValueConverter(row, col, value)
	}
	return ToCellValue(value, spec.Formatter)
}

// ToCellValue encodes a native value. Dates keep their date semantics and the
// formatter is applied as a cell style by the exporter; only Formattable
// values are rendered to text with it.
func ToCellValue(value interface{}, formatter string) CellValue {
	if value == nil {
		return CellValue{Kind: CellBlank}
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return CellValue{Kind: CellBlank}
		}
		rv = rv.Elem()
	}
	value = rv.Interface()

	switch v := value.(type) {
	case CellValue:
		return v
	case Formula:
		return CellValue{Kind: CellFormula, Text: strings.TrimPrefix(string(v), "=")}
	case bool:
		return CellValue{Kind: CellBool, Bool: v}
	case time.Time:
		return CellValue{Kind: CellDate, Time: v}
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return CellValue{Kind: CellNumber, Number: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return CellValue{Kind: CellNumber, Number: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return CellValue{Kind: CellNumber, Number: rv.Float()}
	}

	switch v := value.(type) {
	case float64Err:
		if n, err := v.Float64(); err == nil {
			return CellValue{Kind: CellNumber, Number: n}
		}
	case float64Exact:
		n, _ := v.Float64()
		return CellValue{Kind: CellNumber, Number: n}
	}

	if formatter != "" {
		if f, ok := value.(Formattable); ok {
			return CellValue{Kind: CellText, Text: f.Format(formatter)}
		}
	}
	if rv.Kind() == reflect.String {
		return CellValue{Kind: CellText, Text: rv.String()}
	}
	return CellValue{Kind: CellText, Text: fmt.Sprint(value)}
}

// IsBlank reports whether the value breaks a merge run.
func (v CellValue) IsBlank() bool {
	return v.Kind == CellBlank || (v.Kind == CellText && v.Text == "")
}

func writeCell(f *excelize.File, sheet, cell string, v CellValue) error {
	switch v.Kind {
	case CellBlank:
		return nil
	case CellBool:
		return f.SetCellBool(sheet, cell, v.Bool)
	case CellNumber:
		return f.SetCellFloat(sheet, cell, v.Number, -1, 64)
	case CellDate:
		return f.SetCellValue(sheet, cell, v.Time)
	case CellFormula:
		return f.SetCellFormula(sheet, cell, v.Text)
	default:
		return f.SetCellStr(sheet, cell, v.Text)
	}
}

// FormulaEvaluator computes the value of a formula cell.
type FormulaEvaluator interface {
	Evaluate(sheet, cell string) (string, error)
}

// FormulaEvaluatorFunc adapts a function to FormulaEvaluator.
type FormulaEvaluatorFunc func(sheet, cell string) (string, error)

func (fn FormulaEvaluatorFunc) Evaluate(sheet, cell string) (string, error) {
	return fn(sheet, cell)
}

// NewFormulaEvaluator returns an evaluator bound to one workbook.
func NewFormulaEvaluator(f *excelize.File) FormulaEvaluator {
	return FormulaEvaluatorFunc(func(sheet, cell string) (string, error) {
		return f.CalcCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	})
}

// readCell returns the raw value of a cell: nil, bool, float64, string or
// time.Time. Unevaluated formulas come back as their text without "=".
func readCell(f *excelize.File, sheet, cell string, ev FormulaEvaluator) (interface{}, error) {
	formula, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		return nil, err
	}
	if formula != "" {
		if ev == nil {
			return formula, nil
		}
		res, err := ev.Evaluate(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s!%s: %w", sheet, cell, err)
		}
		return parseEvaluated(res), nil
	}

	raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "TRUE"), nil
	case excelize.CellTypeError, excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw, nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t, nil
		}
		return raw, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	if isDateCell(f, sheet, cell) {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return t, nil
		}
	}
	return n, nil
}

func parseEvaluated(res string) interface{} {
	if res == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(res, 64); err == nil {
		return n
	}
	switch strings.ToUpper(res) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return res
}

func isDateCell(f *excelize.File, sheet, cell string) bool {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	style, err := f.GetStyle(id)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return isBuiltInDateFormat(style.NumFmt)
}

func isBuiltInDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) ||
		(id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

// isDateFormat reports whether a number format code renders dates or times.
// Quoted literals, escaped characters and bracketed sections are skipped.
func isDateFormat(code string) bool {
	inQuote := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			section := strings.ToLower(code[i+1 : i+end])
			if section == "h" || section == "hh" || section == "m" || section == "mm" || section == "s" || section == "ss" {
				return true
			}
			i += end
		case c == ';':
			return false
		default:
			switch c | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// coerce converts a raw cell value to typ.
func coerce(raw interface{}, typ reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(typ), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(typ) {
		out := reflect.New(typ).Elem()
		out.Set(rv)
		return out, nil
	}

	if typ.Kind() == reflect.Ptr {
		elem, err := coerce(raw, typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(typ.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	if typ != timeType && reflect.PointerTo(typ).Implements(textUnmarshalerType) {
		p := reflect.New(typ)
		if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(rawText(raw))); err != nil {
			return reflect.Value{}, conversionError(raw, typ, err)
		}
		return p.Elem(), nil
	}

	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.String:
		out.SetString(rawText(raw))
		return out, nil
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			out.SetBool(v)
		case float64:
			out.SetBool(v != 0)
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return reflect.Value{}, conversionError(raw, typ, err)
			}
			out.SetBool(b)
		default:
			return reflect.Value{}, conversionError(raw, typ, nil)
		}
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := rawNumber(raw)
		if err != nil || n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 || out.OverflowInt(int64(n)) {
			return reflect.Value{}, conversionError(raw, typ, err)
		}
		out.SetInt(int64(n))
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := rawNumber(raw)
		if err != nil || n < 0 || n != math.Trunc(n) || n >= math.MaxUint64 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, conversionError(raw, typ, err)
		}
		out.SetUint(uint64(n))
		return out, nil
	case reflect.Float32, reflect.Float64:
		n, err := rawNumber(raw)
		if err != nil || out.OverflowFloat(n) {
			return reflect.Value{}, conversionError(raw, typ, err)
		}
		out.SetFloat(n)
		return out, nil
	}

	if typ == timeType {
		t, err := rawTime(raw)
		if err != nil {
			return reflect.Value{}, conversionError(raw, typ, err)
		}
		return reflect.ValueOf(t), nil
	}
	if rv.Type().ConvertibleTo(typ) {
		return rv.Convert(typ), nil
	}
	return reflect.Value{}, conversionError(raw, typ, nil)
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func rawText(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return fmt.Sprint(raw)
}

func rawNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("%T is not numeric", raw)
}

func rawTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case float64:
		return excelize.ExcelDateToTime(v, false)
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return excelize.ExcelDateToTime(n, false)
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", v)
	}
	return time.Time{}, fmt.Errorf("%T is not a date", raw)
}

func conversionError(raw interface{}, typ reflect.Type, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %v (%T) to %s: %v", ErrTypeConversion, raw, raw, typ, cause)
	}
	return fmt.Errorf("%w: %v (%T) to %s", ErrTypeConversion, raw, raw, typ)
}
