package sqlrows

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

func TestGuardRejectsBeforeOpen(t *testing.T) {
	opened := false
	adapter := New(Dialect{
		Kind:  query.KindSQLite,
		Guard: RejectStatements("ATTACH", "VACUUM"),
		Open: func(context.Context, string) (*sql.DB, error) {
			opened = true
			return nil, errors.New("unexpected")
		},
	})

	_, err := adapter.Execute(context.Background(), ":memory:", "vacuum into '/tmp/out.db'")
	var engineErr *query.EngineError
	if !errors.As(err, &engineErr) || engineErr.Op != query.OpQuery {
		t.Fatalf("Execute() err = %v", err)
	}
	if opened {
		t.Fatal("opener should not be called for a rejected statement")
	}
}

func TestRejectStatementsMatchesWholeWords(t *testing.T) {
	guard := RejectStatements("ATTACH", "VACUUM")
	for _, sqlText := range []string{"ATTACH DATABASE 'x.db' AS x", "select 1;\nAttach 'x.db' as y", "VACUUM"} {
		if err := guard(sqlText); err == nil {
			t.Fatalf("guard(%q) = nil, want error", sqlText)
		}
	}
	for _, sqlText := range []string{"SELECT attached_at FROM jobs", "SELECT vacuum_count FROM stats"} {
		if err := guard(sqlText); err != nil {
			t.Fatalf("guard(%q) = %v", sqlText, err)
		}
	}
}

func TestLocalPath(t *testing.T) {
	root := t.TempDir()

	got, err := LocalPath(root, "sales.db")
	if err != nil || got != filepath.Join(root, "sales.db") {
		t.Fatalf("LocalPath(relative) = %q, %v", got, err)
	}
	nested := filepath.Join(root, "2026", "q1.db")
	if got, err := LocalPath(root, nested); err != nil || got != nested {
		t.Fatalf("LocalPath(absolute inside) = %q, %v", got, err)
	}

	for _, name := range []string{"../escape.db", "/etc/passwd", "sub/../../escape.db", "."} {
		if _, err := LocalPath(root, name); err == nil {
			t.Fatalf("LocalPath(%q) expected error", name)
		}
	}
	if _, err := LocalPath("", "sales.db"); err == nil {
		t.Fatal("LocalPath without data directory expected error")
	}
}
