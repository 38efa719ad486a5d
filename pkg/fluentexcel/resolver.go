package fluentexcel

import (
	"reflect"
	"sort"
)

// ResolvedField pairs a struct field with its resolved spec.
type ResolvedField struct {
	Name string
	Spec FieldSpec

	index []int
	typ   reflect.Type
}

type resolvedModel struct {
	structType reflect.Type
	pointer    bool
	fields     []ResolvedField
	directives TypeDirectives
}

// Resolve returns the fields of T that take part in the given direction, in
// declaration order, together with the type directives.
//
// Only configured fields are mapped: a field needs either an excel tag or a
// fluent property configuration. A fluent property replaces the field's tag
// entirely; fluent directives replace tag directives when a fluent
// configuration is registered for T.
//
// Export resolution assigns auto-index fields the lowest free columns. Import
// resolution leaves them unresolved for header lookup.
func Resolve[T any](s *Setting, dir Direction) ([]ResolvedField, TypeDirectives, error) {
	m, err := resolve(s, typeOf[T](), dir)
	if err != nil {
		return nil, TypeDirectives{}, err
	}
	return m.fields, m.directives, nil
}

func resolve(s *Setting, t reflect.Type, dir Direction) (*resolvedModel, error) {
	m := &resolvedModel{structType: t}
	if t.Kind() == reflect.Ptr {
		m.structType, m.pointer = t.Elem(), true
	}
	if m.structType.Kind() != reflect.Struct {
		return nil, configErrorf("%s is not a struct type", t)
	}

	tags, err := s.tagConfig(m.structType)
	if err != nil {
		return nil, err
	}
	fc := s.fluentConfig(m.structType)

	fields := exportedFields(m.structType)
	if fc != nil {
		known := make(map[string]bool, len(fields))
		for _, f := range fields {
			known[f.Name] = true
		}
		for _, name := range fc.order {
			if !known[name] {
				return nil, configErrorf("%s has no exported field %q", m.structType, name)
			}
		}
	}

	for _, f := range fields {
		var spec FieldSpec
		if pc, ok := fieldProperty(fc, f.Name); ok {
			spec = pc.spec
		} else if ts, ok := tags.fields[f.Name]; ok {
			spec = ts
		} else {
			continue
		}
		if spec.Title == "" {
			spec.Title = f.Name
		}
		if spec.ignored(dir) {
			continue
		}
		m.fields = append(m.fields, ResolvedField{
			Name:  f.Name,
			Spec:  spec,
			index: f.Index,
			typ:   f.Type,
		})
	}

	if fc != nil {
		m.directives = fc.directives.clone()
	} else {
		m.directives = tags.directives.clone()
	}

	if len(m.fields) == 0 {
		return nil, configErrorf("%s has no fields mapped for %s", m.structType, dir)
	}

	if dir == Export {
		specs := make([]FieldSpec, len(m.fields))
		for i := range m.fields {
			specs[i] = m.fields[i].Spec
		}
		AdjustAutoIndex(specs)
		for i := range m.fields {
			m.fields[i].Spec.Index = specs[i].Index
		}
	}

	if err := validateIndexes(m.structType, m.fields, dir); err != nil {
		return nil, err
	}
	return m, nil
}

func fieldProperty(fc *typeConfig, name string) (*PropertyConfiguration, bool) {
	if fc == nil {
		return nil, false
	}
	pc, ok := fc.properties[name]
	return pc, ok
}

// AdjustAutoIndex assigns every auto-index spec without an explicit column
// the lowest column not reserved by an explicit index or an earlier
// assignment. Specs are visited in slice order.
func AdjustAutoIndex(specs []FieldSpec) {
	used := make(map[int]bool, len(specs))
	for _, s := range specs {
		if s.Index >= 0 {
			used[s.Index] = true
		}
	}
	next := 0
	for i := range specs {
		if specs[i].Index >= 0 || !specs[i].AutoIndex {
			continue
		}
		for used[next] {
			next++
		}
		specs[i].Index = next
		used[next] = true
	}
}

func validateIndexes(t reflect.Type, fields []ResolvedField, dir Direction) error {
	owner := make(map[int]string, len(fields))
	for _, f := range fields {
		if f.Spec.Index < 0 {
			if dir == Import && f.Spec.AutoIndex {
				continue
			}
			return configErrorf("%s.%s has no column index", t, f.Name)
		}
		if prev, ok := owner[f.Spec.Index]; ok {
			return configErrorf("%s.%s and %s.%s share column %d", t, prev, t, f.Name, f.Spec.Index)
		}
		owner[f.Spec.Index] = f.Name
	}
	return nil
}

// exportedFields lists the mappable fields of a struct in declaration order,
// including fields promoted from embedded structs.
func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// columnOrder returns the fields sorted by column, used for width sizing and
// header scans where column order matters more than declaration order.
func columnOrder(fields []ResolvedField) []ResolvedField {
	out := append([]ResolvedField(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spec.Index < out[j].Spec.Index })
	return out
}
