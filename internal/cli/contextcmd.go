package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect and manage the active context",
}

var (
	ctxAddProtected bool
	ctxTraverseCost float64
	ctxClearAll     bool
)

func init() {
	contextAddCmd.Flags().BoolVar(&ctxAddProtected, "protected", false, "Pin the node so it is never evicted")
	contextTraverseCmd.Flags().Float64Var(&ctxTraverseCost, "max-cost", 1.0, "Maximum cumulative edge weight")
	contextClearCmd.Flags().BoolVar(&ctxClearAll, "all", false, "Also drop protected entries and the protected set")

	contextCmd.AddCommand(contextShowCmd)
	contextCmd.AddCommand(contextAddCmd)
	contextCmd.AddCommand(contextTraverseCmd)
	contextCmd.AddCommand(contextClearCmd)
}

var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List nodes in the active context",
	RunE:  runContextShow,
}

func runContextShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	nodes, err := s.ctx.ListNodes(s.db)
	if err != nil {
		return fmt.Errorf("list context: %w", err)
	}
	if len(nodes) == 0 {
		fmt.Println("active context is empty")
		return nil
	}

	for _, node := range nodes {
		marker := " "
		if s.ctx.IsProtected(node.URI) {
			marker = "*"
		}
		fmt.Printf("%s %s (%s)\n", marker, node.URI, node.Name)
	}
	fmt.Printf("\n%d nodes (* = protected)\n", len(nodes))
	return nil
}

var contextAddCmd = &cobra.Command{
	Use:   "add <uri>",
	Short: "Add a node to the active context",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextAdd,
}

func runContextAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.db.GetNode(args[0])
	if err != nil {
		return fmt.Errorf("get node: %w", err)
	}
	if node == nil {
		return fmt.Errorf("no node at %s", args[0])
	}

	admitted, err := s.ctx.Add(node, ctxAddProtected)
	if err != nil {
		return fmt.Errorf("add to context: %w", err)
	}
	if !admitted {
		fmt.Printf("not admitted (context full of protected entries): %s\n", args[0])
		return nil
	}
	fmt.Printf("added %s\n", args[0])
	return nil
}

var contextTraverseCmd = &cobra.Command{
	Use:   "traverse <start-uri>",
	Short: "Explore the graph from a node into the active context",
	Long:  "Walk relations outward from the start node up to the cost budget, pulling every visited node into the active context.",
	Args:  cobra.ExactArgs(1),
	RunE:  runContextTraverse,
}

func runContextTraverse(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	nodes, err := s.engine.Traverse(args[0], ctxTraverseCost)
	if err != nil {
		return fmt.Errorf("traverse: %w", err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no node at %s", args[0])
	}

	for _, node := range nodes {
		fmt.Printf("  %s (%s)\n", node.URI, node.Name)
	}
	fmt.Printf("\nvisited %d nodes (max-cost %g)\n", len(nodes), ctxTraverseCost)
	return nil
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the active context",
	RunE:  runContextClear,
}

func runContextClear(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if ctxClearAll {
		if err := s.ctx.ForceClear(); err != nil {
			return fmt.Errorf("clear context: %w", err)
		}
		fmt.Println("active context cleared (including protected entries)")
		return nil
	}

	if err := s.ctx.Clear(); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	fmt.Println("active context cleared (protected entries kept)")
	return nil
}
