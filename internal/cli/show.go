package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Dump the whole graph",
	Long:  "Print every node and relation in the workspace graph. Intended for small graphs; use the API for anything bigger.",
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	nodes, err := s.db.AllNodes()
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	relations, err := s.db.AllRelations()
	if err != nil {
		return fmt.Errorf("list relations: %w", err)
	}

	fmt.Printf("## Nodes (%d)\n", len(nodes))
	for _, n := range nodes {
		fmt.Printf("  [%s] %s", n.NodeType, n.URI)
		if n.Name != "" {
			fmt.Printf("  %q", n.Name)
		}
		fmt.Println()
	}

	fmt.Printf("\n## Relations (%d)\n", len(relations))
	for _, r := range relations {
		fmt.Printf("  %s --[%s]--> %s (weight: %g)\n", r.SourceURI, r.RelationType, r.TargetURI, r.Weight)
	}
	return nil
}
