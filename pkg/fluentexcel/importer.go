package fluentexcel

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
)

var (
	zipSignature  = []byte("PK\x03\x04")
	ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Load reads records of type T from the workbook at path.
func Load[T any](path string, opts ...Option) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	if !writableExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrUnsupportedFormat, path, err)
	}
	defer f.Close()

	return LoadFromWorkbook[T](f, opts...)
}

// LoadFromReader reads records of type T from a workbook stream. The
// container is recognized by its signature.
func LoadFromReader[T any](r io.Reader, opts ...Option) ([]T, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(ole2Signature))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	switch {
	case bytes.HasPrefix(head, zipSignature):
	case bytes.HasPrefix(head, ole2Signature):
		return nil, fmt.Errorf("%w: legacy binary or encrypted workbook", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: unrecognized workbook signature", ErrUnsupportedFormat)
	}

	f, err := excelize.OpenReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	return LoadFromWorkbook[T](f, opts...)
}

// LoadFromWorkbook reads records of type T from one sheet of f. Row 0 is the
// header; records start at WithStartRow (default 1).
func LoadFromWorkbook[T any](f *excelize.File, opts ...Option) ([]T, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	m, err := resolve(cfg.setting, typeOf[T](), Import)
	if err != nil {
		return nil, err
	}
	sheet, err := selectSheet(f, cfg)
	if err != nil {
		return nil, err
	}

	ev := cfg.evaluator
	if ev == nil && cfg.evalFormulas {
		ev = NewFormulaEvaluator(f)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	merges, err := mergeAnchors(f, sheet)
	if err != nil {
		return nil, err
	}

	imp := &sheetImporter{
		f:       f,
		sheet:   sheet,
		model:   m,
		cfg:     cfg,
		ev:      ev,
		rows:    rows,
		merges:  merges,
		fold:    cases.Fold(),
		columns: make([]int, len(m.fields)),
	}
	for i := range imp.columns {
		imp.columns[i] = m.fields[i].Spec.Index
	}
	return loadRows[T](imp)
}

func selectSheet(f *excelize.File, cfg *config) (string, error) {
	if cfg.sheetName != "" {
		idx, err := f.GetSheetIndex(cfg.sheetName)
		if err != nil || idx < 0 {
			return "", fmt.Errorf("%w: sheet %q", ErrNotFound, cfg.sheetName)
		}
		return cfg.sheetName, nil
	}
	sheets := f.GetSheetList()
	if cfg.sheetIndex < 0 || cfg.sheetIndex >= len(sheets) {
		return "", fmt.Errorf("%w: sheet index %d", ErrNotFound, cfg.sheetIndex)
	}
	return sheets[cfg.sheetIndex], nil
}

type cellPos struct{ col, row int }

// mergeAnchors maps every covered cell of a merged region, except the
// anchor itself, to the anchor's 1-based position.
func mergeAnchors(f *excelize.File, sheet string) (map[cellPos]cellPos, error) {
	regions, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading merged cells: %w", err)
	}
	out := make(map[cellPos]cellPos)
	for _, mc := range regions {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, err
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		anchor := cellPos{c1, r1}
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				if r == r1 && c == c1 {
					continue
				}
				out[cellPos{c, r}] = anchor
			}
		}
	}
	return out, nil
}

type sheetImporter struct {
	f      *excelize.File
	sheet  string
	model  *resolvedModel
	cfg    *config
	ev     FormulaEvaluator
	rows   [][]string
	merges map[cellPos]cellPos
	fold   cases.Caser

	// columns memoizes the resolved column of each field for this call.
	columns []int
}

func loadRows[T any](imp *sheetImporter) ([]T, error) {
	out := make([]T, 0, len(imp.rows))
	d := imp.model.directives
	log := imp.cfg.log

	for r := imp.cfg.startRow; r < len(imp.rows); r++ {
		if d.IgnoreWhitespaceRows && imp.blankRow(r) {
			log.Debug().Int("row", r).Msg("skipping blank row")
			continue
		}
		if r > imp.cfg.startRow && imp.statisticsRow(r) {
			log.Debug().Int("row", r).Msg("skipping statistics row")
			continue
		}

		record, valid, err := imp.decodeRow(r)
		if err != nil {
			return nil, err
		}
		if !valid {
			log.Debug().Int("row", r).Msg("skipping invalid row")
			continue
		}

		value := record
		if imp.model.pointer {
			value = record.Addr()
		}
		if d.RowValidator != nil && !d.RowValidator(r, value.Interface()) {
			if d.SkipInvalidRows {
				log.Debug().Int("row", r).Msg("skipping row rejected by row validator")
				continue
			}
			return nil, &CellError{Row: r, Column: -1, Err: ErrValidation}
		}
		out = append(out, value.Interface().(T))
	}
	return out, nil
}

// decodeRow builds one record. valid is false when a cell validator rejected
// the row and invalid rows are skipped.
func (imp *sheetImporter) decodeRow(r int) (reflect.Value, bool, error) {
	record := reflect.New(imp.model.structType).Elem()
	for i, fld := range imp.model.fields {
		col, err := imp.column(i)
		if err != nil {
			return reflect.Value{}, false, err
		}
		raw, err := readCell(imp.f, imp.sheet, imp.sourceCell(col, r), imp.ev)
		if err != nil {
			return reflect.Value{}, false, &CellError{Row: r, Column: col, Title: fld.Spec.Title, Err: err}
		}
		if fld.Spec.ValueConverter != nil {
			raw = fld.Spec.ValueConverter(r, col, raw)
		}
		if raw == nil {
			continue
		}
		if fld.Spec.ValueValidator != nil && !fld.Spec.ValueValidator(r, col, raw) {
			if imp.model.directives.SkipInvalidRows {
				return reflect.Value{}, false, nil
			}
			return reflect.Value{}, false, &CellError{Row: r, Column: col, Title: fld.Spec.Title, Err: ErrValidation}
		}
		v, err := coerce(raw, fld.typ)
		if err != nil {
			return reflect.Value{}, false, &CellError{Row: r, Column: col, Title: fld.Spec.Title, Err: err}
		}
		setField(record, fld.index, v)
	}
	return record, true, nil
}

// column returns the sheet column of field i, looking auto-index fields up
// in the header row on first use.
func (imp *sheetImporter) column(i int) (int, error) {
	if imp.columns[i] >= 0 {
		return imp.columns[i], nil
	}
	fld := imp.model.fields[i]
	if fld.Spec.AutoIndex && len(imp.rows) > 0 {
		want := imp.fold.String(strings.TrimSpace(fld.Spec.Title))
		for c, title := range imp.rows[0] {
			if imp.fold.String(strings.TrimSpace(title)) == want {
				imp.columns[i] = c
				return c, nil
			}
		}
	}
	return 0, configErrorf("%s.%s: no column titled %q", imp.model.structType, fld.Name, fld.Spec.Title)
}

// sourceCell returns the cell holding the value of (col, r), following
// merged regions back to their anchor. col and r are zero based.
func (imp *sheetImporter) sourceCell(col, r int) string {
	pos := cellPos{col + 1, r + 1}
	if anchor, ok := imp.merges[pos]; ok {
		pos = anchor
	}
	name, _ := excelize.CoordinatesToCellName(pos.col, pos.row)
	return name
}

func (imp *sheetImporter) rawValue(col, r int) string {
	pos := cellPos{col + 1, r + 1}
	if anchor, ok := imp.merges[pos]; ok {
		col, r = anchor.col-1, anchor.row-1
	}
	if r >= len(imp.rows) || col >= len(imp.rows[r]) {
		return ""
	}
	return imp.rows[r][col]
}

// blankRow reports whether row r has no content of its own in any cell and
// no inherited merge value in a mapped column. Merged values in unmapped
// columns do not keep a row alive.
func (imp *sheetImporter) blankRow(r int) bool {
	for _, v := range imp.rows[r] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	for _, i := range imp.columns {
		if i >= 0 && strings.TrimSpace(imp.rawValue(i, r)) != "" {
			return false
		}
	}
	return true
}

// statisticsRow recognizes an aggregate row written by the exporter: column
// 0 holds a statistics name and the first referenced column holds a formula
// starting with the statistics formula. A data row shaped the same way is
// indistinguishable and is dropped as well.
func (imp *sheetImporter) statisticsRow(r int) bool {
	first := imp.fold.String(strings.TrimSpace(imp.rawValue(0, r)))
	if first == "" {
		return false
	}
	for _, st := range imp.model.directives.Statistics {
		if imp.fold.String(st.Name) != first || len(st.Columns) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(st.Columns[0]+1, r+1)
		if err != nil {
			continue
		}
		formula, err := imp.f.GetCellFormula(imp.sheet, cell)
		if err != nil {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(strings.TrimPrefix(formula, "=")), strings.ToUpper(st.Formula)) {
			return true
		}
	}
	return false
}

// setField assigns v through an index path, allocating nil embedded pointers.
func setField(record reflect.Value, index []int, v reflect.Value) {
	cur := record
	for i, x := range index {
		if i > 0 && cur.Kind() == reflect.Ptr {
			if cur.IsNil() {
				if !cur.CanSet() {
					return
				}
				cur.Set(reflect.New(cur.Type().Elem()))
			}
			cur = cur.Elem()
		}
		cur = cur.Field(x)
	}
	if cur.CanSet() {
		cur.Set(v)
	}
}
