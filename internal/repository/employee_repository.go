package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/locvowork/fluentexcel/internal/domain"
	"github.com/locvowork/fluentexcel/internal/repository/builder"
)

const defaultBatchSize = 500

var employeeColumns = []string{"emp_no", "first_name", "last_name", "gender", "department", "birth_date", "hire_date", "salary"}

type employeeRepository struct {
	db        *sql.DB
	batchSize int
}

// NewEmployeeRepository creates a new instance of EmployeeRepository. Upserts
// are split into statements of at most batchSize rows.
func NewEmployeeRepository(db *sql.DB, batchSize int) domain.EmployeeRepository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &employeeRepository{db: db, batchSize: batchSize}
}

// List returns employees grouped by department so equal departments are
// adjacent in exports.
func (r *employeeRepository) List(ctx context.Context, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	query, args := listQuery(filter).Build()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var (
			e                   domain.Employee
			birthDate, hireDate sql.NullTime
		)
		if err := rows.Scan(&e.EmpNo, &e.FirstName, &e.LastName, &e.Gender, &e.Department, &birthDate, &hireDate, &e.Salary); err != nil {
			return nil, err
		}
		e.BirthDate = birthDate.Time
		e.HireDate = hireDate.Time
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func listQuery(filter domain.EmployeeFilter) *builder.SQLBuilder {
	b := builder.NewSQLBuilder()
	b.Select(employeeColumns...).
		From("employees").
		OrderBy("department ASC", "emp_no ASC")

	if filter.Limit > 0 {
		b.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		b.Offset(filter.Offset)
	}
	return b
}

func (r *employeeRepository) Upsert(ctx context.Context, employees []domain.Employee) error {
	if len(employees) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for start := 0; start < len(employees); start += r.batchSize {
		end := start + r.batchSize
		if end > len(employees) {
			end = len(employees)
		}
		query, args := upsertQuery(employees[start:end]).Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert employees %d-%d: %w", start, end-1, err)
		}
	}
	return tx.Commit()
}

func upsertQuery(employees []domain.Employee) *builder.SQLBuilder {
	b := builder.NewSQLBuilder().Insert("employees", employeeColumns...)
	for _, e := range employees {
		b.Values(e.EmpNo, e.FirstName, e.LastName, e.Gender, e.Department, nullDate(e.BirthDate), nullDate(e.HireDate), e.Salary)
	}
	return b.OnConflict("emp_no").DoUpdate(employeeColumns[1:]...)
}

func nullDate(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
