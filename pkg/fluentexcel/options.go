package fluentexcel

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultSheetName is used when an export is given an empty sheet name.
	DefaultSheetName = "sheet0"
	// DefaultMaxColumnWidth caps auto sized columns.
	DefaultMaxColumnWidth = 50
)

// config is shared by export and import calls. Options that only apply to
// one direction are ignored by the other.
type config struct {
	setting *Setting
	log     zerolog.Logger

	// export
	workbook       *excelize.File
	overwrite      bool
	autoSize       bool
	maxColumnWidth int
	headerStyle    *CellStyle

	// import
	startRow     int
	sheetIndex   int
	sheetName    string
	evaluator    FormulaEvaluator
	evalFormulas bool
}

// Option configures an export or import call.
type Option func(*config) error

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		log:            zerolog.Nop(),
		autoSize:       true,
		maxColumnWidth: DefaultMaxColumnWidth,
		startRow:       1,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if cfg.setting == nil {
		cfg.setting = NewSetting()
	}
	return cfg, nil
}

// WithSetting selects the Setting holding fluent registrations. Without it a
// fresh Setting is used and only struct tags apply.
func WithSetting(s *Setting) Option {
	return func(cfg *config) error {
		cfg.setting = s
		return nil
	}
}

// WithLogger sets the logger for engine diagnostics
func WithLogger(log zerolog.Logger) Option {
	return func(cfg *config) error {
		cfg.log = log
		return nil
	}
}

// WithWorkbook exports into an existing workbook instead of a new one
func WithWorkbook(f *excelize.File) Option {
	return func(cfg *config) error {
		cfg.workbook = f
		return nil
	}
}

// WithOverwrite replaces an existing sheet of the same name
func WithOverwrite(overwrite bool) Option {
	return func(cfg *config) error {
		cfg.overwrite = overwrite
		return nil
	}
}

// WithHeaderStyle replaces the title row style. Build one with NewStyleBuilder.
func WithHeaderStyle(style *CellStyle) Option {
	return func(cfg *config) error {
		if style == nil {
			return fmt.Errorf("%w: nil header style", ErrConfiguration)
		}
		cfg.headerStyle = style
		return nil
	}
}

// WithAutoSizeColumns enables or disables column auto sizing. Sizing is on
// by default; turn it off for large exports.
func WithAutoSizeColumns(enabled bool) Option {
	return func(cfg *config) error {
		cfg.autoSize = enabled
		return nil
	}
}

// WithMaxColumnWidth sets the maximum auto sized column width
func WithMaxColumnWidth(width int) Option {
	return func(cfg *config) error {
		if width <= 0 || width > excelize.MaxColumnWidth {
			return fmt.Errorf("%w: column width %d out of range", ErrConfiguration, width)
		}
		cfg.maxColumnWidth = width
		return nil
	}
}

// WithStartRow sets the zero based physical row of the first record. The
// header is always read from row 0.
func WithStartRow(row int) Option {
	return func(cfg *config) error {
		if row < 1 {
			return fmt.Errorf("%w: start row %d must follow the header row", ErrConfiguration, row)
		}
		cfg.startRow = row
		return nil
	}
}

// WithSheetIndex selects the sheet to import by zero based position
func WithSheetIndex(index int) Option {
	return func(cfg *config) error {
		cfg.sheetIndex = index
		cfg.sheetName = ""
		return nil
	}
}

// WithSheetName selects the sheet to import by name
func WithSheetName(name string) Option {
	return func(cfg *config) error {
		cfg.sheetName = name
		return nil
	}
}

// WithFormulaEvaluator evaluates formula cells with ev instead of returning
// their text.
func WithFormulaEvaluator(ev FormulaEvaluator) Option {
	return func(cfg *config) error {
		cfg.evaluator = ev
		return nil
	}
}

// WithFormulaEvaluation evaluates formula cells with the workbook being
// imported.
func WithFormulaEvaluation() Option {
	return func(cfg *config) error {
		cfg.evalFormulas = true
		return nil
	}
}
