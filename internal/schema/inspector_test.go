package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeQuerier serves canned result sets keyed on a fragment of the catalog
// query text.
type fakeQuerier struct {
	results  map[string][][]any
	queryErr error
	queries  []string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	for fragment, rows := range q.results {
		if strings.Contains(sql, fragment) {
			return &scanRows{rows: rows}, nil
		}
	}
	return &scanRows{}, nil
}

// scanRows is a pgx.Rows that copies canned values into Scan destinations.
type scanRows struct {
	rows [][]any
	idx  int
}

func (r *scanRows) Close()                                       {}
func (r *scanRows) Err() error                                   { return nil }
func (r *scanRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scanRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *scanRows) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *scanRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch out := d.(type) {
		case *string:
			*out = row[i].(string)
		case *int64:
			*out = row[i].(int64)
		case *bool:
			*out = row[i].(bool)
		default:
			return fmt.Errorf("unsupported scan destination %T", d)
		}
	}
	return nil
}

func (r *scanRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }
func (r *scanRows) RawValues() [][]byte    { return nil }
func (r *scanRows) Conn() *pgx.Conn        { return nil }

func TestInspector_ListTables(t *testing.T) {
	db := &fakeQuerier{results: map[string][][]any{
		"FROM information_schema.tables": {
			{"orders", int64(7), "customer orders"},
			{"users", int64(4), ""},
		},
	}}
	ins := NewInspector(db)

	tables, err := ins.ListTables(context.Background(), "public")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("len(tables) = %d, want 2", len(tables))
	}
	if tables[0].Name != "orders" || tables[0].ColumnCount != 7 {
		t.Errorf("tables[0] = %+v", tables[0])
	}
	if tables[0].Description != "customer orders" {
		t.Errorf("Description = %q, want customer orders", tables[0].Description)
	}
	if tables[1].Description != "" {
		t.Errorf("tables[1].Description = %q, want empty", tables[1].Description)
	}
}

func TestInspector_ListTables_QueryFailure(t *testing.T) {
	db := &fakeQuerier{queryErr: errors.New("connection refused")}
	ins := NewInspector(db)

	if _, err := ins.ListTables(context.Background(), "public"); !errors.Is(err, ErrQueryFailed) {
		t.Errorf("ListTables() error = %v, want ErrQueryFailed", err)
	}
}

func TestInspector_DescribeTable(t *testing.T) {
	db := &fakeQuerier{results: map[string][][]any{
		"FROM information_schema.columns": {
			{"id", "bigint", false, "nextval('users_id_seq'::regclass)"},
			{"email", "text", false, ""},
			{"nickname", "text", true, ""},
		},
		"PRIMARY KEY": {
			{"id"},
		},
		"FOREIGN KEY": {
			{"users_org_fk", "org_id", "organisations", "id"},
		},
		"pg_indexes": {
			{"users_pkey", "CREATE UNIQUE INDEX users_pkey ON public.users USING btree (id)", true},
			{"users_email_idx", "CREATE INDEX users_email_idx ON public.users USING btree (email)", false},
		},
		"pg_class": {
			{int64(1204)},
		},
	}}
	ins := NewInspector(db)

	detail, err := ins.DescribeTable(context.Background(), "users", "public")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}

	if detail.Schema != "public" || detail.Name != "users" {
		t.Errorf("identity = %s.%s, want public.users", detail.Schema, detail.Name)
	}
	if len(detail.Columns) != 3 {
		t.Fatalf("len(Columns) = %d, want 3", len(detail.Columns))
	}
	if detail.Columns[0].Name != "id" || detail.Columns[0].Nullable {
		t.Errorf("Columns[0] = %+v", detail.Columns[0])
	}
	if !detail.Columns[2].Nullable {
		t.Error("nickname should be nullable")
	}
	if len(detail.PrimaryKeys) != 1 || detail.PrimaryKeys[0] != "id" {
		t.Errorf("PrimaryKeys = %v, want [id]", detail.PrimaryKeys)
	}
	if len(detail.ForeignKeys) != 1 || detail.ForeignKeys[0].ReferencedTable != "organisations" {
		t.Errorf("ForeignKeys = %+v", detail.ForeignKeys)
	}
	if len(detail.Indexes) != 2 {
		t.Fatalf("len(Indexes) = %d, want 2", len(detail.Indexes))
	}
	if !detail.Indexes[0].Unique || detail.Indexes[1].Unique {
		t.Errorf("index uniqueness = %v/%v, want true/false",
			detail.Indexes[0].Unique, detail.Indexes[1].Unique)
	}
	if detail.ApproxRows != 1204 {
		t.Errorf("ApproxRows = %d, want 1204", detail.ApproxRows)
	}
}

func TestInspector_DescribeTable_NotFound(t *testing.T) {
	// No canned columns: the relation does not exist.
	db := &fakeQuerier{results: map[string][][]any{}}
	ins := NewInspector(db)

	_, err := ins.DescribeTable(context.Background(), "missing", "public")
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("DescribeTable() error = %v, want ErrTableNotFound", err)
	}
	if !strings.Contains(err.Error(), "public.missing") {
		t.Errorf("error %q does not name the relation", err)
	}
}

func TestInspector_DescribeTable_QueryFailure(t *testing.T) {
	db := &fakeQuerier{queryErr: errors.New("connection refused")}
	ins := NewInspector(db)

	if _, err := ins.DescribeTable(context.Background(), "users", "public"); !errors.Is(err, ErrQueryFailed) {
		t.Errorf("DescribeTable() error = %v, want ErrQueryFailed", err)
	}
}
