package fluentexcel

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TagName is the struct tag key read by the declarative producer.
//
// Field tags are comma separated items:
//
//	Name   string    `excel:"index:0,title:Full Name"`
//	Dept   string    `excel:"auto,title:Department,merge"`
//	Salary float64   `excel:"index:3,format:#,##0.00"`
//	Secret string    `excel:"-"`
//
// format must be the last item because number formats contain commas.
//
// Type directives live on blank fields:
//
//	_ struct{} `excel:"statistics,name:Total,formula:SUM,columns:3 4"`
//	_ struct{} `excel:"filter,first_col:0,last_col:4"`
//	_ struct{} `excel:"freeze,row_split:1,top_row:1"`
//	_ struct{} `excel:"skip_invalid_rows"`
const TagName = "excel"

// tagModel is the declarative configuration of one record type.
type tagModel struct {
	fields     map[string]FieldSpec
	directives TypeDirectives
}

type tagItem struct {
	key   string
	value string
}

// splitTag splits a tag into items. "format:" consumes the rest of the tag.
func splitTag(tag string) []tagItem {
	var items []tagItem
	rest := tag
	for rest != "" {
		var part string
		if strings.HasPrefix(strings.TrimSpace(rest), "format:") {
			part, rest = strings.TrimSpace(rest), ""
		} else if i := strings.IndexByte(rest, ','); i >= 0 {
			part, rest = rest[:i], rest[i+1:]
		} else {
			part, rest = rest, ""
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		item := tagItem{key: strings.TrimSpace(kv[0])}
		if len(kv) == 2 {
			item.value = kv[1]
			if item.key != "format" {
				item.value = strings.TrimSpace(item.value)
			}
		}
		items = append(items, item)
	}
	return items
}

func parseTypeTags(t reflect.Type) (tagModel, error) {
	model := tagModel{fields: make(map[string]FieldSpec)}

	// Directive fields all share the name "_", which VisibleFields collapses,
	// so they are read from the top level fields directly.
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name != "_" {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		if err := parseDirectiveTag(&model.directives, tag); err != nil {
			return tagModel{}, configErrorf("%s: %v", t, err)
		}
	}

	for _, f := range reflect.VisibleFields(t) {
		if f.Name == "_" || !f.IsExported() || f.Anonymous {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		spec, err := parseFieldTag(tag)
		if err != nil {
			return tagModel{}, configErrorf("%s.%s: %v", t, f.Name, err)
		}
		model.fields[f.Name] = spec
	}
	return model, nil
}

func parseFieldTag(tag string) (FieldSpec, error) {
	spec := NewFieldSpec()
	if strings.TrimSpace(tag) == "-" {
		spec.ExportIgnored = true
		spec.ImportIgnored = true
		return spec, nil
	}
	for _, item := range splitTag(tag) {
		switch item.key {
		case "index":
			n, err := strconv.Atoi(item.value)
			if err != nil {
				return spec, fmt.Errorf("invalid index %q", item.value)
			}
			spec.Index = n
		case "title":
			spec.Title = item.value
		case "auto":
			spec.AutoIndex = true
		case "merge":
			spec.AllowMerge = true
		case "export_ignore":
			spec.ExportIgnored = true
		case "import_ignore":
			spec.ImportIgnored = true
		case "-":
			spec.ExportIgnored = true
			spec.ImportIgnored = true
		case "format":
			spec.Formatter = item.value
		default:
			return spec, fmt.Errorf("unknown tag item %q", item.key)
		}
	}
	return spec, nil
}

func parseDirectiveTag(d *TypeDirectives, tag string) error {
	items := splitTag(tag)
	if len(items) == 0 {
		return fmt.Errorf("empty directive")
	}
	kind, opts := items[0].key, items[1:]
	switch kind {
	case "statistics":
		var s StatisticsConfig
		for _, o := range opts {
			switch o.key {
			case "name":
				s.Name = o.value
			case "formula":
				s.Formula = o.value
			case "columns":
				for _, c := range strings.Fields(o.value) {
					n, err := strconv.Atoi(c)
					if err != nil {
						return fmt.Errorf("invalid statistics column %q", c)
					}
					s.Columns = append(s.Columns, n)
				}
			default:
				return fmt.Errorf("unknown statistics item %q", o.key)
			}
		}
		if s.Name == "" || s.Formula == "" || len(s.Columns) == 0 {
			return fmt.Errorf("statistics needs name, formula and columns")
		}
		d.Statistics = append(d.Statistics, s)
	case "filter":
		var fc FilterConfig
		for _, o := range opts {
			n, err := strconv.Atoi(o.value)
			if err != nil {
				return fmt.Errorf("invalid filter %s %q", o.key, o.value)
			}
			switch o.key {
			case "first_row":
				fc.FirstRow = n
			case "last_row":
				fc.LastRow = &n
			case "first_col":
				fc.FirstCol = n
			case "last_col":
				fc.LastCol = n
			default:
				return fmt.Errorf("unknown filter item %q", o.key)
			}
		}
		d.Filters = append(d.Filters, fc)
	case "freeze":
		var fz FreezeConfig
		for _, o := range opts {
			n, err := strconv.Atoi(o.value)
			if err != nil {
				return fmt.Errorf("invalid freeze %s %q", o.key, o.value)
			}
			switch o.key {
			case "col_split":
				fz.ColSplit = n
			case "row_split":
				fz.RowSplit = n
			case "left_col":
				fz.LeftMostColumn = n
			case "top_row":
				fz.TopRow = n
			default:
				return fmt.Errorf("unknown freeze item %q", o.key)
			}
		}
		d.Freezes = append(d.Freezes, fz)
	case "skip_invalid_rows":
		d.SkipInvalidRows = true
	case "ignore_whitespace_rows":
		d.IgnoreWhitespaceRows = true
	default:
		return fmt.Errorf("unknown directive %q", kind)
	}
	return nil
}
