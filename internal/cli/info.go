package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show workspace and graph statistics",
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	nodes, err := s.db.CountNodes()
	if err != nil {
		return fmt.Errorf("count nodes: %w", err)
	}
	relations, err := s.db.CountRelations()
	if err != nil {
		return fmt.Errorf("count relations: %w", err)
	}

	fmt.Printf("workspace: %s\n", s.ws.ID)
	fmt.Printf("root:      %s\n", s.ws.Root)
	fmt.Printf("db:        %s\n", s.db.Path)
	fmt.Printf("nodes:     %d\n", nodes)
	fmt.Printf("relations: %d\n", relations)
	fmt.Printf("context:   %d / %d\n", s.ctx.Len(), s.ws.Config.Context.MaxSize)
	return nil
}
