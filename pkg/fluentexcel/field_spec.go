package fluentexcel

// IndexUnset marks a FieldSpec whose column has not been resolved yet.
const IndexUnset = -1

// CellValueConverter replaces a raw cell value before coercion (import) or
// before encoding (export). row and col are zero based.
type CellValueConverter func(row, col int, value interface{}) interface{}

// CellValueValidator accepts or rejects a raw cell value during import.
type CellValueValidator func(row, col int, value interface{}) bool

// RowValidator accepts or rejects a fully decoded record. The record is
// passed as a value of the mapped type.
type RowValidator func(row int, record interface{}) bool

// FieldSpec is the resolved spreadsheet configuration of one record field.
type FieldSpec struct {
	Index          int
	Title          string
	AutoIndex      bool
	AllowMerge     bool
	ExportIgnored  bool
	ImportIgnored  bool
	Formatter      string
	ValueConverter CellValueConverter
	ValueValidator CellValueValidator
}

// NewFieldSpec returns a spec with an unresolved index.
func NewFieldSpec() FieldSpec {
	return FieldSpec{Index: IndexUnset}
}

func (s FieldSpec) ignored(dir Direction) bool {
	if dir == Export {
		return s.ExportIgnored
	}
	return s.ImportIgnored
}

// StatisticsConfig describes one vertical aggregate row. Columns are zero
// based sheet columns.
type StatisticsConfig struct {
	Name    string
	Formula string
	Columns []int
}

// FilterConfig describes one auto-filter range. A nil LastRow is replaced by
// the final written row at export time.
type FilterConfig struct {
	FirstRow int
	LastRow  *int
	FirstCol int
	LastCol  int
}

// FreezeConfig describes a frozen pane.
type FreezeConfig struct {
	ColSplit       int
	RowSplit       int
	LeftMostColumn int
	TopRow         int
}

// TypeDirectives are the layout and row policies of one record type.
type TypeDirectives struct {
	Statistics           []StatisticsConfig
	Filters              []FilterConfig
	Freezes              []FreezeConfig
	RowValidator         RowValidator
	SkipInvalidRows      bool
	IgnoreWhitespaceRows bool
}

func (d TypeDirectives) clone() TypeDirectives {
	out := d
	out.Statistics = make([]StatisticsConfig, len(d.Statistics))
	for i, s := range d.Statistics {
		s.Columns = append([]int(nil), s.Columns...)
		out.Statistics[i] = s
	}
	out.Filters = append([]FilterConfig(nil), d.Filters...)
	out.Freezes = append([]FreezeConfig(nil), d.Freezes...)
	return out
}

// Direction selects which ignore flags apply during resolution.
type Direction int

const (
	Export Direction = iota
	Import
)

func (d Direction) String() string {
	if d == Export {
		return "export"
	}
	return "import"
}
