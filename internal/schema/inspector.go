package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier executes a read-only query. *postgres.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Inspector answers catalog questions about the connected database.
type Inspector struct {
	db Querier
}

// NewInspector creates an inspector over the given querier.
func NewInspector(db Querier) *Inspector {
	return &Inspector{db: db}
}

// Table summarises one table in a schema listing.
type Table struct {
	Name        string `json:"name"`
	ColumnCount int64  `json:"columnCount"`
	Description string `json:"description,omitempty"`
}

// Column describes one column of a table.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ForeignKey describes one foreign-key column reference.
type ForeignKey struct {
	Constraint       string `json:"constraint"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
}

// Index describes one index on a table.
type Index struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Unique     bool   `json:"unique"`
}

// TableDetail is the full structural description of one table.
type TableDetail struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKeys []string     `json:"primaryKeys"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
	Indexes     []Index      `json:"indexes"`
	ApproxRows  int64        `json:"approximateRowCount"`
}

const listTablesQuery = `
SELECT t.table_name,
       (SELECT count(*) FROM information_schema.columns c
         WHERE c.table_schema = t.table_schema AND c.table_name = t.table_name),
       COALESCE(obj_description(to_regclass(quote_ident(t.table_schema) || '.' || quote_ident(t.table_name)), 'pg_class'), '')
  FROM information_schema.tables t
 WHERE t.table_schema = $1 AND t.table_type = 'BASE TABLE'
 ORDER BY t.table_name`

// ListTables returns every base table in the schema with its column count and
// comment, ordered by name.
func (ins *Inspector) ListTables(ctx context.Context, schemaName string) ([]Table, error) {
	rows, err := ins.db.Query(ctx, listTablesQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	tables := make([]Table, 0)
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.ColumnCount, &t.Description); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return tables, nil
}

const columnsQuery = `
SELECT column_name, data_type, is_nullable = 'YES', COALESCE(column_default, '')
  FROM information_schema.columns
 WHERE table_schema = $1 AND table_name = $2
 ORDER BY ordinal_position`

const primaryKeysQuery = `
SELECT kcu.column_name
  FROM information_schema.table_constraints tc
  JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
   AND tc.table_schema = kcu.table_schema
 WHERE tc.constraint_type = 'PRIMARY KEY'
   AND tc.table_schema = $1 AND tc.table_name = $2
 ORDER BY kcu.ordinal_position`

const foreignKeysQuery = `
SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
  FROM information_schema.table_constraints tc
  JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
   AND tc.table_schema = kcu.table_schema
  JOIN information_schema.constraint_column_usage ccu
    ON tc.constraint_name = ccu.constraint_name
   AND tc.table_schema = ccu.table_schema
 WHERE tc.constraint_type = 'FOREIGN KEY'
   AND tc.table_schema = $1 AND tc.table_name = $2
 ORDER BY tc.constraint_name, kcu.ordinal_position`

const indexesQuery = `
SELECT indexname, indexdef, indexdef LIKE 'CREATE UNIQUE%'
  FROM pg_indexes
 WHERE schemaname = $1 AND tablename = $2
 ORDER BY indexname`

const approxRowsQuery = `
SELECT GREATEST(c.reltuples::bigint, 0)
  FROM pg_class c
  JOIN pg_namespace n ON n.oid = c.relnamespace
 WHERE n.nspname = $1 AND c.relname = $2`

// DescribeTable returns the structure of one table. If the relation does not
// exist in the schema, ErrTableNotFound is returned.
func (ins *Inspector) DescribeTable(ctx context.Context, tableName, schemaName string) (*TableDetail, error) {
	detail := &TableDetail{
		Schema:      schemaName,
		Name:        tableName,
		Columns:     make([]Column, 0),
		PrimaryKeys: make([]string, 0),
		ForeignKeys: make([]ForeignKey, 0),
		Indexes:     make([]Index, 0),
	}

	if err := ins.collectColumns(ctx, detail); err != nil {
		return nil, err
	}
	// Zero columns means the relation itself is absent: every table has at
	// least one column.
	if len(detail.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, schemaName, tableName)
	}

	if err := ins.collectPrimaryKeys(ctx, detail); err != nil {
		return nil, err
	}
	if err := ins.collectForeignKeys(ctx, detail); err != nil {
		return nil, err
	}
	if err := ins.collectIndexes(ctx, detail); err != nil {
		return nil, err
	}
	if err := ins.collectApproxRows(ctx, detail); err != nil {
		return nil, err
	}

	return detail, nil
}

func (ins *Inspector) collectColumns(ctx context.Context, detail *TableDetail) error {
	rows, err := ins.db.Query(ctx, columnsQuery, detail.Schema, detail.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		detail.Columns = append(detail.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return nil
}

func (ins *Inspector) collectPrimaryKeys(ctx context.Context, detail *TableDetail) error {
	rows, err := ins.db.Query(ctx, primaryKeysQuery, detail.Schema, detail.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		detail.PrimaryKeys = append(detail.PrimaryKeys, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return nil
}

func (ins *Inspector) collectForeignKeys(ctx context.Context, detail *TableDetail) error {
	rows, err := ins.db.Query(ctx, foreignKeysQuery, detail.Schema, detail.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Constraint, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		detail.ForeignKeys = append(detail.ForeignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return nil
}

func (ins *Inspector) collectIndexes(ctx context.Context, detail *TableDetail) error {
	rows, err := ins.db.Query(ctx, indexesQuery, detail.Schema, detail.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Definition, &idx.Unique); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		detail.Indexes = append(detail.Indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return nil
}

func (ins *Inspector) collectApproxRows(ctx context.Context, detail *TableDetail) error {
	rows, err := ins.db.Query(ctx, approxRowsQuery, detail.Schema, detail.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&detail.ApproxRows); err != nil {
			return fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
	}
	return rows.Err()
}
