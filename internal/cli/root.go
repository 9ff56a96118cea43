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

var rootCmd = &cobra.Command{
	Use:   "ke",
	Short: "Workspace knowledge graph for AI coding agents",
	Long:  "ke maintains a per-workspace knowledge graph of concepts, files, and directories, with a bounded active context that follows what you are working on.",
}

var workspaceFlag string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace ID (default: workspace enclosing the current directory)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(addConceptCmd)
	rootCmd.AddCommand(getConceptCmd)
	rootCmd.AddCommand(updateConceptCmd)
	rootCmd.AddCommand(deleteConceptCmd)
	rootCmd.AddCommand(moveConceptCmd)
	rootCmd.AddCommand(deleteResourceCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(unlinkCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(contextCmd)
}

// session bundles the open handles a command needs, with a single Close.
type session struct {
	ws     *workspace.Workspace
	db     *store.DB
	ctx    *active.Context
	engine *engine.Engine
}

func (s *session) Close() {
	s.db.Close()
}

// openSession resolves the workspace (by --workspace ID, or by searching
// upward from the current directory) and opens its database and context.
func openSession() (*session, error) {
	var ws *workspace.Workspace
	var err error
	if workspaceFlag != "" {
		ws, err = workspace.LoadByID(workspaceFlag)
	} else {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return nil, cwdErr
		}
		ws, err = workspace.Load(cwd)
	}
	if err != nil {
		return nil, err
	}

	dbPath, err := ws.DBPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctxPath, err := ws.ContextPath()
	if err != nil {
		db.Close()
		return nil, err
	}
	actx := active.New(ctxPath, ws.Config.Context.MaxSize)

	return &session{
		ws:     ws,
		db:     db,
		ctx:    actx,
		engine: engine.New(db, actx),
	}, nil
}
