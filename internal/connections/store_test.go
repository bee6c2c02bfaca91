package connections

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/query"
)

func mysqlConn(id, name string) SavedConnection {
	return SavedConnection{
		ID:   id,
		Name: name,
		Config: query.ConnectionConfig{
			Type:             query.KindMySQL,
			ConnectionString: "mysql://u:p@localhost/" + name,
		},
	}
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	saved, err := store.Save(mysqlConn("", "app"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" || saved.Config.ID != saved.ID {
		t.Fatalf("saved ids = %q / %q", saved.ID, saved.Config.ID)
	}
	if !saved.LastUsed.Equal(fixed) {
		t.Fatalf("LastUsed = %v", saved.LastUsed)
	}
	if _, err := store.Save(mysqlConn("b", "billing")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	list := reopened.List()
	if len(list) != 2 || list[0].ID != saved.ID || list[1].ID != "b" {
		t.Fatalf("List() = %#v", list)
	}
	if list[0].Config.ConnectionString != "mysql://u:p@localhost/app" || !list[0].LastUsed.Equal(fixed) {
		t.Fatalf("List()[0] = %#v", list[0])
	}
}

func TestSaveReplacesAndMovesToEnd(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, conn := range []SavedConnection{mysqlConn("a", "one"), mysqlConn("b", "two"), mysqlConn("a", "renamed")} {
		if _, err := store.Save(conn); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	list := store.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" || list[1].Name != "renamed" {
		t.Fatalf("List() = %#v", list)
	}
	if list[1].Config.Name != "renamed" {
		t.Fatalf("Config.Name = %q", list[1].Config.Name)
	}
}

func TestSaveRequiresConfig(t *testing.T) {
	store, _ := Open("")
	if _, err := store.Save(SavedConnection{Name: "x"}); !errors.Is(err, ErrInvalid) {
		t.Fatal("expected validation error")
	}
}

func TestDeleteAndTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := store.Save(mysqlConn("a", "one")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := store.Save(mysqlConn("b", "two")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := store.Touch("b", "SELECT 1", at); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() missing error = %v", err)
	}
	if err := store.Touch("zzz", "", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch() missing error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got, err := reopened.Get("b")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.LastQuery != "SELECT 1" || !got.LastUsed.Equal(at) {
		t.Fatalf("Get() = %#v", got)
	}
	if _, err := reopened.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() deleted error = %v", err)
	}
}

func TestOpenRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage.yaml":   "connections: [",
		"noid.yaml":      "connections:\n  - name: x\n",
		"duplicate.yaml": "connections:\n  - id: a\n  - id: a\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := Open(path); err == nil {
			t.Fatalf("Open(%s) expected error", name)
		}
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("List() = %#v", store.List())
	}
	if err := store.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestPingMissingDirectory(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "missing", "connections.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Ping(); err == nil {
		t.Fatal("expected Ping() error")
	}
}

func TestConcurrentSaves(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "connections.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Save(mysqlConn("", "db")); err != nil {
				t.Errorf("Save() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if len(store.List()) != 8 {
		t.Fatalf("len(List()) = %d", len(store.List()))
	}
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.Count(string(data), "connection_string:"); got != 8 {
		t.Fatalf("file has %d connections", got)
	}
}
