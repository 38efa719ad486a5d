package builder

import (
	"fmt"
	"strings"
)

type statementKind int

const (
	kindSelect statementKind = iota + 1
	kindInsert
	kindUpdate
	kindDelete
)

// SQLBuilder helps construct PostgreSQL statements with $n placeholders.
// Conditions are written with "?" and numbered in the order they appear.
type SQLBuilder struct {
	kind       statementKind
	table      string
	columns    []string
	rows       [][]interface{}
	setCols    []string
	setArgs    []interface{}
	conditions []condition
	joins      []string
	orderBy    []string
	limit      int
	offset     int

	conflictCols []string
	conflictSet  []string
	conflictSkip bool
}

type condition struct {
	sql  string
	args []interface{}
	or   bool
}

// NewSQLBuilder creates a new instance of SQLBuilder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.kind = kindSelect
	b.columns = cols
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.kind = kindInsert
	b.table = table
	b.columns = cols
	return b
}

// Update specifies the table to update.
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.kind = kindUpdate
	b.table = table
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.kind = kindDelete
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Set adds a column assignment to an UPDATE.
func (b *SQLBuilder) Set(col string, val interface{}) *SQLBuilder {
	b.setCols = append(b.setCols, col)
	b.setArgs = append(b.setArgs, val)
	return b
}

// Values adds one row to an INSERT. Call it once per row.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// OnConflict names the unique columns of an upsert.
func (b *SQLBuilder) OnConflict(cols ...string) *SQLBuilder {
	b.conflictCols = cols
	return b
}

// DoUpdate replaces the given columns with the incoming row on conflict.
func (b *SQLBuilder) DoUpdate(cols ...string) *SQLBuilder {
	b.conflictSet = cols
	b.conflictSkip = false
	return b
}

// DoNothing keeps the existing row on conflict.
func (b *SQLBuilder) DoNothing() *SQLBuilder {
	b.conflictSet = nil
	b.conflictSkip = true
	return b
}

// Where adds a condition joined with AND.
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.conditions = append(b.conditions, condition{sql: cond, args: args})
	return b
}

// Or adds a condition joined with OR.
func (b *SQLBuilder) Or(cond string, args ...interface{}) *SQLBuilder {
	b.conditions = append(b.conditions, condition{sql: cond, args: args, or: true})
	return b
}

// Join adds a JOIN clause.
func (b *SQLBuilder) Join(joinType, table, on string) *SQLBuilder {
	b.joins = append(b.joins, fmt.Sprintf("%s JOIN %s ON %s", joinType, table, on))
	return b
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order ...string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order...)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// Build constructs the final SQL string and arguments.
func (b *SQLBuilder) Build() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	switch b.kind {
	case kindSelect:
		sb.WriteString("SELECT ")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(" FROM ")
		sb.WriteString(b.table)
		for _, join := range b.joins {
			sb.WriteString(" ")
			sb.WriteString(join)
		}
	case kindInsert:
		sb.WriteString("INSERT INTO ")
		sb.WriteString(b.table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(") VALUES ")
		tuples := make([]string, len(b.rows))
		for i, row := range b.rows {
			placeholders := make([]string, len(row))
			for j := range row {
				args = append(args, row[j])
				placeholders[j] = fmt.Sprintf("$%d", len(args))
			}
			tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
		}
		sb.WriteString(strings.Join(tuples, ", "))
		b.writeConflict(&sb)
		return sb.String(), args
	case kindUpdate:
		sb.WriteString("UPDATE ")
		sb.WriteString(b.table)
		sb.WriteString(" SET ")
		setClauses := make([]string, len(b.setCols))
		for i, col := range b.setCols {
			args = append(args, b.setArgs[i])
			setClauses[i] = fmt.Sprintf("%s = $%d", col, len(args))
		}
		sb.WriteString(strings.Join(setClauses, ", "))
	case kindDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(b.table)
	}

	if len(b.conditions) > 0 {
		sb.WriteString(" WHERE ")
		for i, c := range b.conditions {
			if i > 0 {
				if c.or {
					sb.WriteString(" OR ")
				} else {
					sb.WriteString(" AND ")
				}
			}
			parts := strings.Split(c.sql, "?")
			for j, part := range parts {
				sb.WriteString(part)
				if j < len(parts)-1 {
					sb.WriteString(fmt.Sprintf("$%d", len(args)+1))
					if j < len(c.args) {
						args = append(args, c.args[j])
					}
				}
			}
		}
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", b.limit))
	}
	if b.offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", b.offset))
	}

	return sb.String(), args
}

func (b *SQLBuilder) writeConflict(sb *strings.Builder) {
	if len(b.conflictCols) == 0 {
		return
	}
	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(b.conflictCols, ", "))
	sb.WriteString(")")
	if b.conflictSkip || len(b.conflictSet) == 0 {
		sb.WriteString(" DO NOTHING")
		return
	}
	sets := make([]string, len(b.conflictSet))
	for i, col := range b.conflictSet {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	sb.WriteString(" DO UPDATE SET ")
	sb.WriteString(strings.Join(sets, ", "))
}
