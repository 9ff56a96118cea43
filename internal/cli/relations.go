package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var linkWeight float64

func init() {
	linkCmd.Flags().Float64Var(&linkWeight, "weight", 1.0, "Traversal cost, >= 0")
}

var linkCmd = &cobra.Command{
	Use:   "link <source-uri> <target-uri> <type>",
	Short: "Create a relation between two nodes",
	Long:  "Create a directed, typed, weighted relation. A duplicate (source, target, type) triple is silently ignored and the existing relation kept.",
	Args:  cobra.ExactArgs(3),
	RunE:  runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	rel, err := s.engine.LinkNodes(args[0], args[1], args[2], linkWeight)
	if err != nil {
		return fmt.Errorf("link nodes: %w", err)
	}
	fmt.Printf("%s --[%s]--> %s (weight: %g)\n", rel.SourceURI, rel.RelationType, rel.TargetURI, rel.Weight)
	return nil
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <source-uri> <target-uri> <type>",
	Short: "Remove a relation",
	Args:  cobra.ExactArgs(3),
	RunE:  runUnlink,
}

func runUnlink(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.engine.UnlinkNodes(args[0], args[1], args[2]); err != nil {
		return fmt.Errorf("unlink nodes: %w", err)
	}
	fmt.Printf("removed %s --[%s]--> %s\n", args[0], args[2], args[1])
	return nil
}

var relationsCmd = &cobra.Command{
	Use:   "relations <uri>",
	Short: "List all relations touching a node",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelations,
}

func runRelations(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	uri := args[0]
	rels, err := s.engine.RelationsForNode(uri)
	if err != nil {
		return fmt.Errorf("get relations: %w", err)
	}
	if len(rels) == 0 {
		fmt.Printf("no relations for %s\n", uri)
		return nil
	}

	for _, rel := range rels {
		if rel.SourceURI == uri {
			fmt.Printf("  --[%s]--> %s (weight: %g)\n", rel.RelationType, rel.TargetURI, rel.Weight)
		} else {
			fmt.Printf("  <--[%s]-- %s (weight: %g)\n", rel.RelationType, rel.SourceURI, rel.Weight)
		}
	}
	return nil
}
