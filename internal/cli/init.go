package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/engine"
	"github.com/knowledge-engine/ke/internal/store"
	"github.com/knowledge-engine/ke/internal/workspace"
)

var initID string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a knowledge workspace",
	Long:  "Create ke_config.toml in the given directory (default: current), scan the file tree into the graph, and seed the root concept nodes.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initID, "id", "", "Workspace ID (default: directory name)")
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	ws, err := workspace.Create(root, initID)
	if err != nil {
		return err
	}

	dbPath, err := ws.DBPath()
	if err != nil {
		return err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctxPath, err := ws.ContextPath()
	if err != nil {
		return err
	}
	actx := active.New(ctxPath, ws.Config.Context.MaxSize)

	eng := engine.New(db, actx)

	result, err := eng.Bootstrap(ws.Root, ws.Config.Bootstrap.IgnoreDirs)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	if err := actx.InitializeWithRootNodes(db, ws.ID); err != nil {
		return fmt.Errorf("seed root nodes: %w", err)
	}

	fmt.Fprintf(os.Stderr, "initialized workspace %q at %s\n", ws.ID, ws.Root)
	fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "  scanned: %d directories, %d files\n", result.Dirs, result.Files)
	return nil
}
