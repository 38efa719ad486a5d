package domain

import "time"

// Employee is one row of the employees table and one row of the roster
// workbook. Columns are fixed by the excel tags; layout directives are
// registered by the service.
type Employee struct {
	EmpNo      int       `json:"emp_no" db:"emp_no" excel:"index:0,title:Emp No"`
	FirstName  string    `json:"first_name" db:"first_name" excel:"index:1,title:First Name"`
	LastName   string    `json:"last_name" db:"last_name" excel:"index:2,title:Last Name"`
	Gender     string    `json:"gender" db:"gender" excel:"index:3,title:Gender"`
	Department string    `json:"department" db:"department" excel:"index:4,title:Department,merge"`
	BirthDate  time.Time `json:"birth_date" db:"birth_date" excel:"index:5,title:Birth Date,format:yyyy-mm-dd"`
	HireDate   time.Time `json:"hire_date" db:"hire_date" excel:"index:6,title:Hire Date,format:yyyy-mm-dd"`
	Salary     float64   `json:"salary" db:"salary" excel:"index:7,title:Salary,format:#,##0.00"`
}

// Salary column position, shared by the statistics and filter directives.
const (
	EmployeeSalaryColumn = 7
	EmployeeLastColumn   = 7
)
