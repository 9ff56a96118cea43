package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	ws, err := Create(root, "myproj")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.ID != "myproj" {
		t.Errorf("ID = %q, want myproj", ws.ID)
	}
	if _, err := os.Stat(filepath.Join(root, ConfigFileName)); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != "myproj" {
		t.Errorf("loaded ID = %q, want myproj", loaded.ID)
	}
	if loaded.Config.Context.MaxSize != 100 {
		t.Errorf("MaxSize = %d, want default 100", loaded.Config.Context.MaxSize)
	}
}

func TestCreateDefaultsIDToDirName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := filepath.Join(t.TempDir(), "widget")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	ws, err := Create(root, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.ID != "widget" {
		t.Errorf("ID = %q, want widget", ws.ID)
	}
}

func TestCreateRejectsInitialized(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	if _, err := Create(root, "one"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := Create(root, "two"); err == nil {
		t.Error("expected error re-initializing workspace")
	}
}

func TestFindRootSearchesUpward(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	if _, err := Create(root, "myproj"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, ok := FindRoot(nested)
	if !ok {
		t.Fatal("FindRoot failed from nested dir")
	}
	// TempDir may be behind a symlink; compare resolved paths.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	if gotResolved != wantResolved {
		t.Errorf("FindRoot = %q, want %q", found, root)
	}
}

func TestFindRootMissing(t *testing.T) {
	if _, ok := FindRoot(t.TempDir()); ok {
		t.Error("FindRoot found a workspace in an empty temp dir")
	}
}

func TestLoadByIDViaRegistry(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	if _, err := Create(root, "myproj"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ws, err := LoadByID("myproj")
	if err != nil {
		t.Fatalf("LoadByID: %v", err)
	}
	if ws.Root != root {
		t.Errorf("Root = %q, want %q", ws.Root, root)
	}

	if _, err := LoadByID("unknown"); err == nil {
		t.Error("expected error for unregistered ID")
	}
}

func TestDBAndContextPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	ws := &Workspace{ID: "myproj"}
	dbPath, err := ws.DBPath()
	if err != nil {
		t.Fatalf("DBPath: %v", err)
	}
	if !strings.HasSuffix(dbPath, filepath.Join(".knowledge", "myproj.db")) {
		t.Errorf("DBPath = %q", dbPath)
	}

	ctxPath, err := ws.ContextPath()
	if err != nil {
		t.Fatalf("ContextPath: %v", err)
	}
	if !strings.HasSuffix(ctxPath, "myproj.context.json") {
		t.Errorf("ContextPath = %q", ctxPath)
	}

	if _, err := os.Stat(filepath.Join(home, ".knowledge")); err != nil {
		t.Errorf("knowledge dir not created: %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:8000" {
		t.Errorf("ListenAddr = %q, want 127.0.0.1:8000", got)
	}
}

func TestLoadAppliesConfigOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	config := `[project]
workspace_id = "custom"

[context]
max_size = 25

[server]
bind = "0.0.0.0"
port = 9000
`
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	ws, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ws.ID != "custom" {
		t.Errorf("ID = %q, want custom", ws.ID)
	}
	if ws.Config.Context.MaxSize != 25 {
		t.Errorf("MaxSize = %d, want 25", ws.Config.Context.MaxSize)
	}
	if got := ws.Config.ListenAddr(); got != "0.0.0.0:9000" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:9000", got)
	}
}
