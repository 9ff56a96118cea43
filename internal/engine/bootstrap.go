package engine

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/knowledge-engine/ke/internal/store"
)

// DefaultIgnoreDirs are skipped by the bootstrap scanner unless the workspace
// config overrides them.
var DefaultIgnoreDirs = []string{
	".git", ".knowledge", ".venv", "__pycache__", ".vscode", ".idea",
	"node_modules", "build", "dist",
}

// BootstrapResult summarizes one bootstrap scan.
type BootstrapResult struct {
	Dirs  int
	Files int
}

// Bootstrap scans the directory tree under rootPath and mirrors it into the
// graph: a dir:// node per directory, a file:// node per file, and
// "contains" relations from each directory to its entries. URIs are relative
// to rootPath, with the root itself at dir://. — matching the node seeded by
// InitializeWithRootNodes. Already-known nodes are left untouched, so
// repeated scans only add what is new. Patterns from extraIgnores (typically
// the workspace config plus .gitignore lines) extend the default ignore set.
func (e *Engine) Bootstrap(rootPath string, extraIgnores []string) (*BootstrapResult, error) {
	rootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve bootstrap root: %w", err)
	}

	ignores := append([]string{}, DefaultIgnoreDirs...)
	ignores = append(ignores, extraIgnores...)
	ignores = append(ignores, readGitignore(rootPath)...)

	result := &BootstrapResult{}

	walkErr := filepath.WalkDir(rootPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(rootPath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && matchesIgnore(d.Name(), ignores) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			added, err := e.ensureTreeNode("dir://"+rel, store.NodeDirectory, d.Name(), rel)
			if err != nil {
				return err
			}
			if added {
				result.Dirs++
			}
			return nil
		}

		added, err := e.ensureTreeNode("file://"+rel, store.NodeResource, d.Name(), rel)
		if err != nil {
			return err
		}
		if added {
			result.Files++
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("bootstrap walk: %w", walkErr)
	}
	return result, nil
}

// ensureTreeNode creates a dir/file node if missing and links it to its
// parent directory with a "contains" relation. Returns whether a node was
// created.
func (e *Engine) ensureTreeNode(uri string, nodeType store.NodeType, name, rel string) (bool, error) {
	existing, err := e.db.GetNode(uri)
	if err != nil {
		return false, err
	}

	created := false
	if existing == nil {
		if err := e.db.UpsertNode(&store.Node{
			URI:      uri,
			NodeType: nodeType,
			Name:     name,
		}); err != nil {
			return false, err
		}
		created = true
	}

	if rel == "." {
		return created, nil
	}

	parent := path.Dir(rel)
	parentURI := "dir://" + parent
	if err := e.db.AddRelation(&store.Relation{
		SourceURI:    parentURI,
		TargetURI:    uri,
		RelationType: "contains",
		Weight:       1.0,
	}); err != nil {
		return created, err
	}
	return created, nil
}

// matchesIgnore checks a base name against glob-style ignore patterns.
func matchesIgnore(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// readGitignore collects non-comment lines from the root .gitignore, if any.
// Only simple name patterns are honored; this is a convenience, not a full
// gitignore implementation.
func readGitignore(rootPath string) []string {
	f, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.Trim(line, "/"))
	}
	return patterns
}
