package fluentexcel

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// yaml_config.go - YAML producer of fluent configurations

// ModelTemplate is the YAML form of a fluent configuration.
type ModelTemplate struct {
	Columns              []ColumnTemplate     `yaml:"columns"`
	Statistics           []StatisticsTemplate `yaml:"statistics,omitempty"`
	Filters              []FilterTemplate     `yaml:"filters,omitempty"`
	Freezes              []FreezeTemplate     `yaml:"freezes,omitempty"`
	SkipInvalidRows      bool                 `yaml:"skip_invalid_rows,omitempty"`
	IgnoreWhitespaceRows bool                 `yaml:"ignore_whitespace_rows,omitempty"`
}

// ColumnTemplate maps one struct field.
type ColumnTemplate struct {
	Field         string `yaml:"field"`           // Go field name (required)
	Index         *int   `yaml:"index,omitempty"` // Zero based column
	Title         string `yaml:"title,omitempty"` // Header text (defaults to Field)
	AutoIndex     bool   `yaml:"auto_index,omitempty"`
	Merge         bool   `yaml:"merge,omitempty"`
	Format        string `yaml:"format,omitempty"`
	ExportIgnored bool   `yaml:"export_ignored,omitempty"`
	ImportIgnored bool   `yaml:"import_ignored,omitempty"`
	Converter     string `yaml:"converter,omitempty"` // Name registered with Setting.RegisterConverter
	Validator     string `yaml:"validator,omitempty"` // Name registered with Setting.RegisterValidator
}

type StatisticsTemplate struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
	Columns []int  `yaml:"columns"`
}

type FilterTemplate struct {
	FirstRow int  `yaml:"first_row"`
	LastRow  *int `yaml:"last_row,omitempty"`
	FirstCol int  `yaml:"first_col"`
	LastCol  int  `yaml:"last_col"`
}

type FreezeTemplate struct {
	ColSplit       int `yaml:"col_split"`
	RowSplit       int `yaml:"row_split"`
	LeftMostColumn int `yaml:"left_col"`
	TopRow         int `yaml:"top_row"`
}

// FromYAML parses data and registers it as the fluent configuration of T.
func FromYAML[T any](s *Setting, data []byte) (*FluentConfiguration[T], error) {
	var tmpl ModelTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML: %v", ErrConfiguration, err)
	}

	t := typeOf[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, configErrorf("%s is not a struct type", t)
	}
	fields := make(map[string]bool)
	for _, f := range exportedFields(t) {
		fields[f.Name] = true
	}

	// Build into a detached config so a failed parse leaves the Setting untouched.
	cfg := &FluentConfiguration[T]{tc: newTypeConfig()}
	for i, col := range tmpl.Columns {
		if col.Field == "" {
			return nil, configErrorf("columns[%d]: field is required", i)
		}
		if !fields[col.Field] {
			return nil, configErrorf("columns[%d]: %s has no field %q", i, t, col.Field)
		}
		p := cfg.Property(col.Field)
		if col.Index != nil {
			p.HasExcelIndex(*col.Index)
		}
		if col.Title != "" {
			p.HasExcelTitle(col.Title)
		}
		if col.AutoIndex {
			p.HasAutoIndex()
		}
		if col.Merge {
			p.IsMergeEnabled()
		}
		if col.Format != "" {
			p.HasDataFormatter(col.Format)
		}
		p.IsIgnored(col.ExportIgnored, col.ImportIgnored)
		if col.Converter != "" {
			fn, ok := s.converter(col.Converter)
			if !ok {
				return nil, configErrorf("columns[%d]: unknown converter %q", i, col.Converter)
			}
			p.HasValueConverter(fn)
		}
		if col.Validator != "" {
			fn, ok := s.validator(col.Validator)
			if !ok {
				return nil, configErrorf("columns[%d]: unknown validator %q", i, col.Validator)
			}
			p.HasValueValidator(fn)
		}
	}

	for i, st := range tmpl.Statistics {
		if st.Name == "" || st.Formula == "" || len(st.Columns) == 0 {
			return nil, configErrorf("statistics[%d]: name, formula and columns are required", i)
		}
		cfg.HasStatistics(st.Name, st.Formula, st.Columns...)
	}
	for _, ft := range tmpl.Filters {
		cfg.HasFilter(ft.FirstCol, ft.LastCol, ft.FirstRow, ft.LastRow)
	}
	for _, fz := range tmpl.Freezes {
		cfg.HasFreeze(fz.ColSplit, fz.RowSplit, fz.LeftMostColumn, fz.TopRow)
	}
	cfg.SkipInvalidRows(tmpl.SkipInvalidRows)
	cfg.IgnoreWhitespaceRows(tmpl.IgnoreWhitespaceRows)

	s.register(t, cfg.tc)
	return cfg, nil
}

// FromYAMLReader reads a YAML configuration from r.
func FromYAMLReader[T any](s *Setting, r io.Reader) (*FluentConfiguration[T], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading YAML configuration: %w", err)
	}
	return FromYAML[T](s, data)
}

// FromYAMLFile loads a YAML configuration from path.
func FromYAMLFile[T any](s *Setting, path string) (*FluentConfiguration[T], error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening YAML configuration: %w", err)
	}
	defer file.Close()

	return FromYAMLReader[T](s, file)
}
