package service

import (
	"strings"

	"github.com/locvowork/fluentexcel/internal/domain"
	"github.com/locvowork/fluentexcel/pkg/fluentexcel"
)

// ExcelConfig carries the workbook settings read from the environment.
type ExcelConfig struct {
	SheetName  string
	AutoSize   bool
	StartRow   int
	Author     string
	Company    string
	Subject    string
	ConfigPath string // optional YAML replacing the built-in Employee layout
}

// NewExcelSetting builds the spreadsheet mapping for the domain types. Field
// columns come from the excel struct tags; layout and import rules are
// registered here, or loaded from cfg.ConfigPath when set.
func NewExcelSetting(cfg ExcelConfig) (*fluentexcel.Setting, error) {
	s := fluentexcel.NewSetting()
	if cfg.Author != "" {
		s.Author = cfg.Author
	}
	if cfg.Company != "" {
		s.Company = cfg.Company
	}
	if cfg.Subject != "" {
		s.Subject = cfg.Subject
	}

	s.RegisterConverter("upper_trim", upperTrim)
	s.RegisterValidator("positive", positiveNumber)

	if cfg.ConfigPath != "" {
		if _, err := fluentexcel.FromYAMLFile[domain.Employee](s, cfg.ConfigPath); err != nil {
			return nil, err
		}
		return s, nil
	}

	fluentexcel.For[domain.Employee](s).
		HasStatistics("Total", "SUM", domain.EmployeeSalaryColumn).
		HasFreeze(0, 1, 0, 1).
		HasFilter(0, domain.EmployeeLastColumn, 0, nil).
		HasRowValidator(func(_ int, e domain.Employee) bool { return e.EmpNo > 0 }).
		SkipInvalidRows(true).
		IgnoreWhitespaceRows(true).
		Property("Gender").
		HasExcelCell(3, "Gender", "", false).
		HasValueConverter(upperTrim)

	return s, nil
}

func upperTrim(_, _ int, v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	return v
}

func positiveNumber(_, _ int, v interface{}) bool {
	n, ok := v.(float64)
	return ok && n > 0
}
