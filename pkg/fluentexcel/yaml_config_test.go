package fluentexcel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type yamlOrder struct {
	ID       int
	Customer string
	Amount   float64
	Internal string
}

const orderYAML = `
columns:
  - field: ID
    index: 0
    title: Order
  - field: Customer
    auto_index: true
    merge: true
    converter: upper
  - field: Amount
    index: 2
    format: "#,##0.00"
    validator: positive
  - field: Internal
    index: 3
    export_ignored: true
statistics:
  - name: Total
    formula: SUM
    columns: [2]
freezes:
  - row_split: 1
    top_row: 1
skip_invalid_rows: true
`

func yamlSetting() *Setting {
	s := NewSetting()
	s.RegisterConverter("upper", func(_, _ int, v interface{}) interface{} { return v })
	s.RegisterValidator("positive", func(_, _ int, v interface{}) bool {
		n, ok := v.(float64)
		return ok && n > 0
	})
	return s
}

func TestFromYAML(t *testing.T) {
	s := yamlSetting()
	_, err := FromYAML[yamlOrder](s, []byte(orderYAML))
	require.NoError(t, err)

	fields, d, err := Resolve[yamlOrder](s, Export)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "Order", fields[0].Spec.Title)
	assert.Equal(t, 1, fields[1].Spec.Index)
	assert.True(t, fields[1].Spec.AllowMerge)
	assert.NotNil(t, fields[1].Spec.ValueConverter)
	assert.Equal(t, "#,##0.00", fields[2].Spec.Formatter)
	assert.NotNil(t, fields[2].Spec.ValueValidator)

	require.Len(t, d.Statistics, 1)
	assert.Equal(t, []int{2}, d.Statistics[0].Columns)
	require.Len(t, d.Freezes, 1)
	assert.True(t, d.SkipInvalidRows)

	fields, _, err = Resolve[yamlOrder](s, Import)
	require.NoError(t, err)
	assert.Len(t, fields, 4)
}

func TestFromYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown field":     "columns:\n  - field: Nope\n    index: 0\n",
		"missing field":     "columns:\n  - index: 0\n",
		"unknown converter": "columns:\n  - field: ID\n    index: 0\n    converter: missing\n",
		"unknown validator": "columns:\n  - field: ID\n    index: 0\n    validator: missing\n",
		"bad statistics":    "columns:\n  - field: ID\n    index: 0\nstatistics:\n  - name: Total\n",
		"malformed":         "columns: [",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			s := yamlSetting()
			_, err := FromYAML[yamlOrder](s, []byte(doc))
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Nil(t, s.fluentConfig(typeOf[yamlOrder]()), "failed parse must not register")
		})
	}
}

func TestFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orderYAML), 0o600))

	s := yamlSetting()
	_, err := FromYAMLFile[*yamlOrder](s, path)
	require.NoError(t, err)
	assert.NotNil(t, s.fluentConfig(typeOf[yamlOrder]()))

	_, err = FromYAMLFile[yamlOrder](s, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)
}
