package domain

import "context"

// EmployeeFilter defines criteria for listing employees
type EmployeeFilter struct {
	Limit  int
	Offset int
}

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	// Upsert inserts or replaces employees by emp_no in one transaction.
	Upsert(ctx context.Context, employees []Employee) error
}
