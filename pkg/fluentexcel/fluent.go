package fluentexcel

import (
	"reflect"
	"sync"
)

// Setting holds the fluent registrations, named converters/validators and
// workbook properties used by export and import calls. It is passed
// explicitly; there is no package level instance.
//
// Registrations should be complete before the Setting is shared between
// goroutines. Resolution itself is safe for concurrent use.
type Setting struct {
	Company string
	Author  string
	Subject string

	mu         sync.RWMutex
	fluent     map[reflect.Type]*typeConfig
	tags       map[reflect.Type]tagModel
	converters map[string]CellValueConverter
	validators map[string]CellValueValidator
}

// NewSetting returns an empty Setting.
func NewSetting() *Setting {
	return &Setting{
		Company:    "fluentexcel",
		Author:     "fluentexcel",
		Subject:    "Records exported with fluentexcel",
		fluent:     make(map[reflect.Type]*typeConfig),
		tags:       make(map[reflect.Type]tagModel),
		converters: make(map[string]CellValueConverter),
		validators: make(map[string]CellValueValidator),
	}
}

// RegisterConverter makes a converter addressable by name from YAML configuration.
func (s *Setting) RegisterConverter(name string, fn CellValueConverter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.converters[name] = fn
}

// RegisterValidator makes a validator addressable by name from YAML configuration.
func (s *Setting) RegisterValidator(name string, fn CellValueValidator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[name] = fn
}

func (s *Setting) converter(name string) (CellValueConverter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.converters[name]
	return fn, ok
}

func (s *Setting) validator(name string) (CellValueValidator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.validators[name]
	return fn, ok
}

func (s *Setting) register(t reflect.Type, tc *typeConfig) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fluent[t] = tc
}

func (s *Setting) fluentConfig(t reflect.Type) *typeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fluent[t]
}

// tagConfig parses the struct tags of t once and caches the result.
func (s *Setting) tagConfig(t reflect.Type) (tagModel, error) {
	s.mu.RLock()
	m, ok := s.tags[t]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}
	m, err := parseTypeTags(t)
	if err != nil {
		return tagModel{}, err
	}
	s.mu.Lock()
	s.tags[t] = m
	s.mu.Unlock()
	return m, nil
}

type typeConfig struct {
	properties map[string]*PropertyConfiguration
	order      []string
	directives TypeDirectives
}

func newTypeConfig() *typeConfig {
	return &typeConfig{properties: make(map[string]*PropertyConfiguration)}
}

func (tc *typeConfig) property(name string) *PropertyConfiguration {
	if pc, ok := tc.properties[name]; ok {
		return pc
	}
	pc := &PropertyConfiguration{spec: NewFieldSpec()}
	tc.properties[name] = pc
	tc.order = append(tc.order, name)
	return pc
}

// FluentConfiguration configures record type T programmatically. Once a
// fluent configuration exists for T it takes precedence over struct tags:
// per field for fields it names, and wholesale for type directives.
type FluentConfiguration[T any] struct {
	tc *typeConfig
}

// For registers and returns a fresh fluent configuration for T, replacing
// any previous registration.
func For[T any](s *Setting) *FluentConfiguration[T] {
	tc := newTypeConfig()
	s.register(typeOf[T](), tc)
	return &FluentConfiguration[T]{tc: tc}
}

// Property returns the configuration of the exported field called name.
// Unknown names are reported when the type is first resolved.
func (c *FluentConfiguration[T]) Property(name string) *PropertyConfiguration {
	return c.tc.property(name)
}

// HasStatistics appends a vertical aggregate row.
func (c *FluentConfiguration[T]) HasStatistics(name, formula string, columns ...int) *FluentConfiguration[T] {
	c.tc.directives.Statistics = append(c.tc.directives.Statistics, StatisticsConfig{
		Name:    name,
		Formula: formula,
		Columns: append([]int(nil), columns...),
	})
	return c
}

// HasFilter appends an auto-filter range. A nil lastRow is computed at export time.
func (c *FluentConfiguration[T]) HasFilter(firstCol, lastCol, firstRow int, lastRow *int) *FluentConfiguration[T] {
	c.tc.directives.Filters = append(c.tc.directives.Filters, FilterConfig{
		FirstRow: firstRow,
		LastRow:  lastRow,
		FirstCol: firstCol,
		LastCol:  lastCol,
	})
	return c
}

// HasFreeze appends a frozen pane.
func (c *FluentConfiguration[T]) HasFreeze(colSplit, rowSplit, leftMostColumn, topRow int) *FluentConfiguration[T] {
	c.tc.directives.Freezes = append(c.tc.directives.Freezes, FreezeConfig{
		ColSplit:       colSplit,
		RowSplit:       rowSplit,
		LeftMostColumn: leftMostColumn,
		TopRow:         topRow,
	})
	return c
}

// HasRowValidator sets the record level validator used on import.
func (c *FluentConfiguration[T]) HasRowValidator(fn func(row int, record T) bool) *FluentConfiguration[T] {
	if fn == nil {
		c.tc.directives.RowValidator = nil
		return c
	}
	c.tc.directives.RowValidator = func(row int, record interface{}) bool {
		v, ok := asType[T](record)
		return ok && fn(row, v)
	}
	return c
}

// asType converts record to T, bridging a struct and a pointer to it so a
// configuration registered for S also serves imports of *S and vice versa.
func asType[T any](record interface{}) (T, bool) {
	if v, ok := record.(T); ok {
		return v, true
	}
	var zero T
	rv := reflect.ValueOf(record)
	if !rv.IsValid() {
		return zero, false
	}
	want := typeOf[T]()
	switch {
	case rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Type() == want:
		return rv.Elem().Interface().(T), true
	case want.Kind() == reflect.Ptr && want.Elem() == rv.Type():
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface().(T), true
	}
	return zero, false
}

// SkipInvalidRows makes validator rejections drop the row instead of failing.
func (c *FluentConfiguration[T]) SkipInvalidRows(skip bool) *FluentConfiguration[T] {
	c.tc.directives.SkipInvalidRows = skip
	return c
}

// IgnoreWhitespaceRows drops rows whose cells are all blank on import.
func (c *FluentConfiguration[T]) IgnoreWhitespaceRows(ignore bool) *FluentConfiguration[T] {
	c.tc.directives.IgnoreWhitespaceRows = ignore
	return c
}

// PropertyConfiguration configures one field.
type PropertyConfiguration struct {
	spec FieldSpec
}

func (p *PropertyConfiguration) HasExcelIndex(index int) *PropertyConfiguration {
	p.spec.Index = index
	return p
}

func (p *PropertyConfiguration) HasExcelTitle(title string) *PropertyConfiguration {
	p.spec.Title = title
	return p
}

func (p *PropertyConfiguration) HasDataFormatter(formatter string) *PropertyConfiguration {
	p.spec.Formatter = formatter
	return p
}

// HasAutoIndex resolves the column from the header title on import and from
// the lowest free column on export.
func (p *PropertyConfiguration) HasAutoIndex() *PropertyConfiguration {
	p.spec.AutoIndex = true
	return p
}

func (p *PropertyConfiguration) IsMergeEnabled() *PropertyConfiguration {
	p.spec.AllowMerge = true
	return p
}

// IsIgnored sets the export and import ignore flags independently.
func (p *PropertyConfiguration) IsIgnored(exportIgnored, importIgnored bool) *PropertyConfiguration {
	p.spec.ExportIgnored = exportIgnored
	p.spec.ImportIgnored = importIgnored
	return p
}

func (p *PropertyConfiguration) HasValueConverter(fn CellValueConverter) *PropertyConfiguration {
	p.spec.ValueConverter = fn
	return p
}

func (p *PropertyConfiguration) HasValueValidator(fn CellValueValidator) *PropertyConfiguration {
	p.spec.ValueValidator = fn
	return p
}

// HasExcelCell configures a fixed column in one call.
func (p *PropertyConfiguration) HasExcelCell(index int, title, formatter string, allowMerge bool) *PropertyConfiguration {
	p.spec.Index = index
	p.spec.Title = title
	p.spec.Formatter = formatter
	p.spec.AutoIndex = false
	p.spec.AllowMerge = allowMerge
	return p
}

// HasAutoExcelCell configures an auto-indexed column in one call.
func (p *PropertyConfiguration) HasAutoExcelCell(title, formatter string, allowMerge bool) *PropertyConfiguration {
	p.spec.Index = IndexUnset
	p.spec.Title = title
	p.spec.Formatter = formatter
	p.spec.AutoIndex = true
	p.spec.AllowMerge = allowMerge
	return p
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
