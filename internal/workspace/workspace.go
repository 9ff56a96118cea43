// Package workspace resolves where a knowledge graph lives: it discovers the
// ke_config.toml workspace marker, derives per-workspace database and context
// paths under ~/.knowledge, and maintains the global workspace registry.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName marks a workspace root.
const ConfigFileName = "ke_config.toml"

// Config is the ke_config.toml workspace configuration.
type Config struct {
	Project   ProjectConfig   `toml:"project"`
	Bootstrap BootstrapConfig `toml:"bootstrap"`
	Context   ContextConfig   `toml:"context"`
	Server    ServerConfig    `toml:"server"`
}

type ProjectConfig struct {
	WorkspaceID string `toml:"workspace_id"`
}

type BootstrapConfig struct {
	IgnoreDirs []string `toml:"ignore_dirs"`
}

type ContextConfig struct {
	MaxSize int `toml:"max_size"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Bootstrap: BootstrapConfig{
			IgnoreDirs: []string{
				".git", ".knowledge", ".venv", "__pycache__", ".vscode",
				".idea", "node_modules", "build", "dist",
			},
		},
		Context: ContextConfig{MaxSize: 100},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8000,
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Workspace is a resolved workspace: its identifier, root directory, and
// parsed configuration.
type Workspace struct {
	ID     string
	Root   string
	Config Config
}

// KnowledgeDir returns (and creates) the ~/.knowledge directory that holds
// per-workspace databases, context files, and the registry.
func KnowledgeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".knowledge")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create knowledge dir: %w", err)
	}
	return dir, nil
}

// DBPath returns the workspace's SQLite database path.
func (w *Workspace) DBPath() (string, error) {
	dir, err := KnowledgeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, w.ID+".db"), nil
}

// ContextPath returns the workspace's persisted active-context path.
func (w *Workspace) ContextPath() (string, error) {
	dir, err := KnowledgeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, w.ID+".context.json"), nil
}

// FindRoot searches upward from start for a directory containing
// ke_config.toml. Returns ("", false) when no workspace encloses start.
func FindRoot(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load resolves the workspace enclosing start (upward search).
func Load(start string) (*Workspace, error) {
	root, ok := FindRoot(start)
	if !ok {
		return nil, fmt.Errorf("no %s found above %s", ConfigFileName, start)
	}
	return loadRoot(root)
}

// LoadByID resolves a workspace through the global registry.
func LoadByID(id string) (*Workspace, error) {
	reg, err := readRegistry()
	if err != nil {
		return nil, err
	}
	entry, ok := reg[id]
	if !ok {
		return nil, fmt.Errorf("workspace %q not registered", id)
	}
	return loadRoot(entry.RootPath)
}

func loadRoot(root string) (*Workspace, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("read workspace config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}

	id := cfg.Project.WorkspaceID
	if id == "" {
		id = filepath.Base(root)
	}
	return &Workspace{ID: id, Root: root, Config: cfg}, nil
}

// Create initializes a new workspace at root: writes ke_config.toml and
// registers the workspace globally. Fails if the directory already holds a
// workspace config with an ID.
func Create(root, id string) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = filepath.Base(root)
	}

	configPath := filepath.Join(root, ConfigFileName)
	if data, err := os.ReadFile(configPath); err == nil {
		var existing Config
		if err := toml.Unmarshal(data, &existing); err == nil && existing.Project.WorkspaceID != "" {
			return nil, fmt.Errorf("workspace already initialized in %s", configPath)
		}
	}

	cfg := Default()
	cfg.Project.WorkspaceID = id

	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal workspace config: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ConfigFileName, err)
	}

	if err := Register(id, root); err != nil {
		return nil, err
	}
	return &Workspace{ID: id, Root: root, Config: cfg}, nil
}

// registryEntry is one workspace in the global workspaces.json registry.
type registryEntry struct {
	RootPath string `json:"root_path"`
}

func registryPath() (string, error) {
	dir, err := KnowledgeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces.json"), nil
}

func readRegistry() (map[string]registryEntry, error) {
	path, err := registryPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]registryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace registry: %w", err)
	}
	reg := map[string]registryEntry{}
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse workspace registry: %w", err)
	}
	return reg, nil
}

// Register adds or updates a workspace in the global registry.
func Register(id, root string) error {
	reg, err := readRegistry()
	if err != nil {
		return err
	}
	reg[id] = registryEntry{RootPath: root}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workspace registry: %w", err)
	}
	path, err := registryPath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write workspace registry: %w", err)
	}
	return nil
}
