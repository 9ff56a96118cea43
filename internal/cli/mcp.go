package cli

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/ke/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server on stdio",
	Long:  "Expose the knowledge engine as Model Context Protocol tools over stdin/stdout, for use by AI agents.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(s.db, s.ctx, s.engine, s.ws.ID, s.ws.Root, VersionString())

	fmt.Fprintf(os.Stderr, "ke mcp server for workspace %q on stdio\n", s.ws.ID)
	return mcpserver.ServeStdio(srv)
}
