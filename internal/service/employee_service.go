package service

import (
	"context"
	"fmt"
	"io"

	"github.com/locvowork/fluentexcel/internal/domain"
	"github.com/locvowork/fluentexcel/internal/logger"
	"github.com/locvowork/fluentexcel/pkg/fluentexcel"
)

type EmployeeService interface {
	List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error)
	// ExportEmployees renders the selected employees as an xlsx workbook.
	ExportEmployees(ctx context.Context, filter domain.EmployeeFilter) ([]byte, error)
	// ImportEmployees upserts the employees of one sheet and returns how many
	// were stored. An empty sheet name selects the first sheet.
	ImportEmployees(ctx context.Context, r io.Reader, sheet string) (int, error)
}

type employeeService struct {
	repo    domain.EmployeeRepository
	setting *fluentexcel.Setting
	cfg     ExcelConfig
}

func NewEmployeeService(repo domain.EmployeeRepository, setting *fluentexcel.Setting, cfg ExcelConfig) EmployeeService {
	return &employeeService{repo: repo, setting: setting, cfg: cfg}
}

func (s *employeeService) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	return s.repo.List(ctx, filter)
}

func (s *employeeService) ExportEmployees(ctx context.Context, filter domain.EmployeeFilter) ([]byte, error) {
	employees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	data, err := fluentexcel.ToBytes(employees, s.cfg.SheetName,
		fluentexcel.WithSetting(s.setting),
		fluentexcel.WithAutoSizeColumns(s.cfg.AutoSize),
		fluentexcel.WithLogger(logger.FromContext(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to export employees: %w", err)
	}
	logger.InfoLog(ctx, "Exported %d employees", len(employees))
	return data, nil
}

func (s *employeeService) ImportEmployees(ctx context.Context, r io.Reader, sheet string) (int, error) {
	opts := []fluentexcel.Option{
		fluentexcel.WithSetting(s.setting),
		fluentexcel.WithLogger(logger.FromContext(ctx)),
	}
	if s.cfg.StartRow > 0 {
		opts = append(opts, fluentexcel.WithStartRow(s.cfg.StartRow))
	}
	if sheet != "" {
		opts = append(opts, fluentexcel.WithSheetName(sheet))
	}

	employees, err := fluentexcel.LoadFromReader[domain.Employee](r, opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to read employees: %w", err)
	}
	if err := s.repo.Upsert(ctx, employees); err != nil {
		return 0, fmt.Errorf("failed to store employees: %w", err)
	}
	logger.InfoLog(ctx, "Imported %d employees", len(employees))
	return len(employees), nil
}
