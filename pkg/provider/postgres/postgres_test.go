package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matzehuels/contractmap/pkg/provider"
)

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.i-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.data[r.i-1], dest)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

func scanInto(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = vals[i].(string)
		case *int:
			*p = vals[i].(int)
		default:
			return fmt.Errorf("scan: unsupported target %T", d)
		}
	}
	return nil
}

type fakeDB struct {
	rows    map[string][][]any
	row     fakeRow
	lastSQL string
	args    []any
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.args = sql, args
	for key, data := range f.rows {
		if strings.Contains(sql, key) {
			return &fakeRows{data: data}, nil
		}
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.args = sql, args
	return f.row
}

func newProvider(db *fakeDB) *Provider {
	return NewFromQuerier(db, log.New(io.Discard))
}

func TestContractors(t *testing.T) {
	db := &fakeDB{rows: map[string][][]any{
		"JOIN companies": {
			{"A", "(주)에이", "김", "서울", "CSO-1", 2},
			{"B", "비", "", "", "", 0},
		},
	}}
	p := newProvider(db)

	got, err := p.ImmediateContractors(context.Background(), "P")
	if err != nil {
		t.Fatalf("ImmediateContractors() error: %v", err)
	}
	if len(got) != 2 || got[0].ChildrenCount != 2 || got[0].RegistrationNumber != "CSO-1" {
		t.Errorf("ImmediateContractors() = %+v", got)
	}
	if db.args[0] != "P" || db.args[1] != "P" {
		t.Errorf("args = %v, want [P P]", db.args)
	}

	if _, err := p.SubContractors(context.Background(), "P", "A"); err != nil {
		t.Fatal(err)
	}
	if db.args[0] != "P" || db.args[1] != "A" {
		t.Errorf("args = %v, want [P A]", db.args)
	}
}

func TestPharmacy(t *testing.T) {
	db := &fakeDB{row: fakeRow{vals: []any{"P", "가나약국", "홍", "부산", ""}}}
	c, err := newProvider(db).Pharmacy(context.Background(), "P")
	if err != nil || c.Name != "가나약국" || c.Address != "부산" {
		t.Fatalf("Pharmacy() = %+v, %v", c, err)
	}

	db.row = fakeRow{err: pgx.ErrNoRows}
	if _, err := newProvider(db).Pharmacy(context.Background(), "P"); !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("Pharmacy() error = %v, want ErrNotFound", err)
	}
}

func TestRelations(t *testing.T) {
	db := &fakeDB{rows: map[string][][]any{
		"FROM subcontract_relation\nWHERE": {{"P", "A"}, {"A", "C"}},
	}}
	rels, err := newProvider(db).Relations(context.Background(), "P")
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 2 || rels[1] != (provider.Relation{ParentID: "A", ChildID: "C"}) {
		t.Errorf("Relations() = %+v", rels)
	}
}

func TestLookupCompanies(t *testing.T) {
	db := &fakeDB{rows: map[string][][]any{
		"ANY($1)": {{"A", "에이", "", "", ""}},
	}}
	p := newProvider(db)

	got, err := p.LookupCompanies(context.Background(), []string{"A", "Z"})
	if err != nil || len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("LookupCompanies() = %+v, %v", got, err)
	}
	if ids, ok := db.args[0].([]string); !ok || len(ids) != 2 {
		t.Errorf("args = %v, want the id slice", db.args)
	}

	if got, err := p.LookupCompanies(context.Background(), nil); got != nil || err != nil {
		t.Errorf("LookupCompanies(nil) = %v, %v", got, err)
	}
	if _, err := p.LookupCompanies(context.Background(), make([]string, provider.BatchSize+1)); !errors.Is(err, provider.ErrBatchTooLarge) {
		t.Errorf("error = %v, want ErrBatchTooLarge", err)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Error("New() should fail without a dsn")
	}
}
