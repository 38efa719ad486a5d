package fluentexcel

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ToWorkbook writes records to sheetName and returns the workbook. A new
// workbook is created unless WithWorkbook is given; an existing sheet of the
// same name is an error unless WithOverwrite(true) is given.
func ToWorkbook[T any](records []T, sheetName string, opts ...Option) (*excelize.File, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	m, err := resolve(cfg.setting, typeOf[T](), Export)
	if err != nil {
		return nil, err
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f, created := cfg.workbook, false
	if f == nil {
		f, created = excelize.NewFile(), true
	}
	fail := func(err error) (*excelize.File, error) {
		if created {
			f.Close()
		}
		return nil, err
	}

	if err := prepareSheet(f, sheetName, created, cfg.overwrite); err != nil {
		return fail(err)
	}
	if created {
		if err := setProperties(f, cfg.setting); err != nil {
			return fail(err)
		}
	}

	rows := make([]reflect.Value, len(records))
	for i := range records {
		rows[i] = reflect.ValueOf(&records[i]).Elem()
	}
	e := &sheetExporter{
		f:      f,
		sheet:  sheetName,
		model:  m,
		cfg:    cfg,
		styles: newStyleCache(f, cfg.log, cfg.headerStyle),
	}
	if err := e.export(rows); err != nil {
		return fail(err)
	}
	cfg.log.Debug().Str("sheet", sheetName).Int("records", len(records)).Msg("exported records")
	return f, nil
}

// ToBytes writes records to a new xlsx workbook and returns its bytes.
func ToBytes[T any](records []T, sheetName string, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToWriter(&buf, records, sheetName, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToWriter writes records as an xlsx workbook to w.
func ToWriter[T any](w io.Writer, records []T, sheetName string, opts ...Option) error {
	f, err := ToWorkbook(records, sheetName, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// ToFile writes records to path. An existing workbook at path is opened and
// the sheet added to it.
func ToFile[T any](path string, records []T, sheetName string, opts ...Option) error {
	if err := checkExtension(path); err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		existing, err := excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer existing.Close()
		opts = append([]Option{WithWorkbook(existing)}, opts...)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	f, err := ToWorkbook(records, sheetName, opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

var writableExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

func checkExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !writableExtensions[ext] {
		return fmt.Errorf("%w: %w: extension %q", ErrUnsupportedFormat, ErrConfiguration, ext)
	}
	return nil
}

func prepareSheet(f *excelize.File, name string, created, overwrite bool) error {
	if created {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return configErrorf("sheet name %q: %v", name, err)
		}
		return nil
	}

	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return configErrorf("sheet name %q: %v", name, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return configErrorf("sheet name %q: %v", name, err)
		}
		return nil
	}
	if !overwrite {
		return configErrorf("sheet %q already exists", name)
	}

	// A workbook keeps at least one sheet, so build the replacement first.
	tmp := "~" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := f.NewSheet(tmp); err != nil {
		return fmt.Errorf("creating replacement sheet: %w", err)
	}
	if err := f.DeleteSheet(name); err != nil {
		return fmt.Errorf("deleting sheet %q: %w", name, err)
	}
	if err := f.SetSheetName(tmp, name); err != nil {
		return configErrorf("sheet name %q: %v", name, err)
	}
	newIdx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(newIdx)
	return nil
}

func setProperties(f *excelize.File, s *Setting) error {
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        s.Author,
		LastModifiedBy: s.Author,
		Subject:        s.Subject,
	}); err != nil {
		return fmt.Errorf("setting document properties: %w", err)
	}
	if err := f.SetAppProps(&excelize.AppProperties{Company: s.Company}); err != nil {
		return fmt.Errorf("setting app properties: %w", err)
	}
	return nil
}

type sheetExporter struct {
	f      *excelize.File
	sheet  string
	model  *resolvedModel
	cfg    *config
	styles *styleCache

	widths map[int]int
}

func (e *sheetExporter) export(rows []reflect.Value) error {
	e.widths = make(map[int]int)

	// values[field][row]; natives are kept only for mergeable fields.
	values := make([][]CellValue, len(e.model.fields))
	natives := make([][]interface{}, len(e.model.fields))

	for r, rv := range rows {
		if r == 0 {
			if err := e.writeHeader(); err != nil {
				return err
			}
		}
		record, ok := structValue(rv, e.model.pointer)
		for i, fld := range e.model.fields {
			var native interface{}
			if ok {
				native = fieldValue(record, fld.index)
			}
			col := fld.Spec.Index
			cv := encodeCell(native, fld.Spec, r+1, col)
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := writeCell(e.f, e.sheet, cell, cv); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
			if cv.Kind != CellBlank {
				if style := e.styles.formatStyle(col, fld.Spec.Formatter); style != 0 {
					if err := e.f.SetCellStyle(e.sheet, cell, cell, style); err != nil {
						return fmt.Errorf("styling %s: %w", cell, err)
					}
				}
			}
			e.track(col, displayWidth(cv, fld.Spec.Formatter))

			if fld.Spec.AllowMerge {
				values[i] = append(values[i], cv)
				natives[i] = append(natives[i], native)
			}
		}
	}

	for i, fld := range e.model.fields {
		if !fld.Spec.AllowMerge {
			continue
		}
		if err := e.mergeRuns(fld.Spec.Index, values[i], natives[i]); err != nil {
			return err
		}
	}

	if len(rows) > 0 {
		lastRow, err := e.writeStatistics(len(rows))
		if err != nil {
			return err
		}
		if err := e.applyFreezes(); err != nil {
			return err
		}
		if err := e.applyFilters(lastRow); err != nil {
			return err
		}
	}

	if e.cfg.autoSize {
		return e.autoSize()
	}
	return nil
}

func (e *sheetExporter) writeHeader() error {
	style, err := e.styles.headerStyle()
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	for _, fld := range e.model.fields {
		cell, err := excelize.CoordinatesToCellName(fld.Spec.Index+1, 1)
		if err != nil {
			return err
		}
		if err := e.f.SetCellStr(e.sheet, cell, fld.Spec.Title); err != nil {
			return fmt.Errorf("setting header value: %w", err)
		}
		if err := e.f.SetCellStyle(e.sheet, cell, cell, style); err != nil {
			return fmt.Errorf("setting header style: %w", err)
		}
		e.track(fld.Spec.Index, len([]rune(fld.Spec.Title)))
	}
	return nil
}

// mergeRuns merges each run of two or more equal, non blank values in col.
// Data row r lives on sheet row r+2.
func (e *sheetExporter) mergeRuns(col int, cells []CellValue, natives []interface{}) error {
	start := 0
	for r := 1; r <= len(cells); r++ {
		if r < len(cells) && !cells[r].IsBlank() && !cells[start].IsBlank() && sameValue(natives[start], natives[r]) {
			continue
		}
		if r-start > 1 {
			if err := e.merge(col, start+2, r+1); err != nil {
				return err
			}
		}
		start = r
	}
	return nil
}

func (e *sheetExporter) merge(col, firstRow, lastRow int) error {
	top, err := excelize.CoordinatesToCellName(col+1, firstRow)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col+1, lastRow)
	if err != nil {
		return err
	}
	if err := e.f.MergeCell(e.sheet, top, bottom); err != nil {
		return fmt.Errorf("merging %s:%s: %w", top, bottom, err)
	}
	base, err := e.f.GetCellStyle(e.sheet, top)
	if err != nil {
		return err
	}
	style, err := e.styles.anchorStyle(base)
	if err != nil {
		return fmt.Errorf("creating merge style: %w", err)
	}
	return e.f.SetCellStyle(e.sheet, top, top, style)
}

// sameValue compares native field values. Times compare by instant.
func sameValue(a, b interface{}) bool {
	a, b = deref(a), deref(b)
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func deref(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// writeStatistics appends one aggregate row per statistics directive below
// n data rows and returns the last used sheet row.
func (e *sheetExporter) writeStatistics(n int) (int, error) {
	row := n + 1
	for _, st := range e.model.directives.Statistics {
		row++
		nameCell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return 0, err
		}
		if err := e.f.SetCellStr(e.sheet, nameCell, st.Name); err != nil {
			return 0, err
		}
		for _, col := range st.Columns {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return 0, err
			}
			formula, err := statisticsFormula(st.Formula, col, n)
			if err != nil {
				return 0, err
			}
			if err := e.f.SetCellFormula(e.sheet, cell, formula); err != nil {
				return 0, fmt.Errorf("writing formula %s: %w", cell, err)
			}
		}
	}
	return row, nil
}

// statisticsFormula returns FORMULA(top:bottom) over the n data rows of col.
func statisticsFormula(formula string, col, n int) (string, error) {
	top, err := excelize.CoordinatesToCellName(col+1, 2)
	if err != nil {
		return "", err
	}
	bottom, err := excelize.CoordinatesToCellName(col+1, n+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s:%s)", formula, top, bottom), nil
}

func (e *sheetExporter) applyFreezes() error {
	for _, fz := range e.model.directives.Freezes {
		if fz.ColSplit <= 0 && fz.RowSplit <= 0 {
			continue
		}
		topLeft, err := excelize.CoordinatesToCellName(fz.LeftMostColumn+1, fz.TopRow+1)
		if err != nil {
			return err
		}
		pane := "bottomRight"
		switch {
		case fz.ColSplit <= 0:
			pane = "bottomLeft"
		case fz.RowSplit <= 0:
			pane = "topRight"
		}
		if err := e.f.SetPanes(e.sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      fz.ColSplit,
			YSplit:      fz.RowSplit,
			TopLeftCell: topLeft,
			ActivePane:  pane,
		}); err != nil {
			return fmt.Errorf("setting freeze panes: %w", err)
		}
	}
	return nil
}

func (e *sheetExporter) applyFilters(lastRow int) error {
	for _, fc := range e.model.directives.Filters {
		last := lastRow
		if fc.LastRow != nil {
			last = *fc.LastRow + 1
		}
		from, err := excelize.CoordinatesToCellName(fc.FirstCol+1, fc.FirstRow+1)
		if err != nil {
			return err
		}
		to, err := excelize.CoordinatesToCellName(fc.LastCol+1, last)
		if err != nil {
			return err
		}
		if err := e.f.AutoFilter(e.sheet, from+":"+to, []excelize.AutoFilterOptions{}); err != nil {
			return fmt.Errorf("setting auto filter: %w", err)
		}
	}
	return nil
}

func (e *sheetExporter) track(col, width int) {
	if width > e.widths[col] {
		e.widths[col] = width
	}
}

func (e *sheetExporter) autoSize() error {
	for _, fld := range columnOrder(e.model.fields) {
		name, err := excelize.ColumnNumberToName(fld.Spec.Index + 1)
		if err != nil {
			return err
		}
		width := float64(e.widths[fld.Spec.Index]) * 1.2 // Add some padding
		if width < 10 {
			width = 10
		}
		if width > float64(e.cfg.maxColumnWidth) {
			width = float64(e.cfg.maxColumnWidth)
		}
		if err := e.f.SetColWidth(e.sheet, name, name, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}

func displayWidth(v CellValue, formatter string) int {
	switch v.Kind {
	case CellBlank:
		return 0
	case CellBool:
		return 5
	case CellNumber:
		if formatter != "" {
			return len(formatter)
		}
		return len(strconv.FormatFloat(v.Number, 'f', -1, 64))
	case CellDate:
		if formatter != "" {
			return len(formatter)
		}
		return len("2006-01-02 15:04:05")
	default:
		return len([]rune(v.Text))
	}
}

func structValue(rv reflect.Value, pointer bool) (reflect.Value, bool) {
	if pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, true
}

func fieldValue(record reflect.Value, index []int) interface{} {
	v, err := record.FieldByIndexErr(index)
	if err != nil || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
