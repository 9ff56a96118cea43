package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Rescan the workspace file tree into the graph",
	Long:  "Walk the workspace directory tree and add directory and file nodes that are not yet in the graph. Existing nodes are left untouched.",
	RunE:  runBootstrap,
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.engine.Bootstrap(s.ws.Root, s.ws.Config.Bootstrap.IgnoreDirs)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	fmt.Fprintf(os.Stderr, "scanned %s: %d directories, %d files added\n", s.ws.Root, result.Dirs, result.Files)
	return nil
}
