package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conceptContent string

func init() {
	addConceptCmd.Flags().StringVarP(&conceptContent, "content", "c", "", "Concept content (markdown)")
	updateConceptCmd.Flags().StringVarP(&conceptContent, "content", "c", "", "New content (markdown)")
}

var addConceptCmd = &cobra.Command{
	Use:   "add-concept <uri> <name>",
	Short: "Add a concept node",
	Long:  "Add a concept node to the graph. Markdown links of the form [text](concept://uri) in the content create 'references' relations to existing concepts.",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddConcept,
}

func runAddConcept(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.engine.AddConcept(args[0], args[1], conceptContent)
	if err != nil {
		return fmt.Errorf("add concept: %w", err)
	}
	fmt.Printf("added %s (%s)\n", node.URI, node.Name)
	return nil
}

var getConceptCmd = &cobra.Command{
	Use:   "get-concept <uri>",
	Short: "Show a concept",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetConcept,
}

func runGetConcept(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.engine.GetConcept(args[0])
	if err != nil {
		return fmt.Errorf("get concept: %w", err)
	}
	if node == nil {
		return fmt.Errorf("no concept at %s", args[0])
	}

	fmt.Printf("# %s\n", node.Name)
	fmt.Printf("uri: %s\n", node.URI)
	if node.Content != "" {
		fmt.Printf("\n%s\n", node.Content)
	}
	return nil
}

var updateConceptCmd = &cobra.Command{
	Use:   "update-concept <uri> <name>",
	Short: "Update a concept's name and content",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdateConcept,
}

func runUpdateConcept(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	node, err := s.engine.UpdateConcept(args[0], args[1], conceptContent)
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	if node == nil {
		return fmt.Errorf("no concept at %s", args[0])
	}
	fmt.Printf("updated %s\n", node.URI)
	return nil
}

var deleteConceptCmd = &cobra.Command{
	Use:   "delete-concept <uri>",
	Short: "Delete a concept and its relations",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteConcept,
}

func runDeleteConcept(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.engine.DeleteConcept(args[0])
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if !ok {
		return fmt.Errorf("no concept at %s", args[0])
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

var moveConceptCmd = &cobra.Command{
	Use:   "move-concept <old-uri> <new-uri>",
	Short: "Move a concept to a new URI",
	Long:  "Rename a concept, rewriting every relation endpoint that points at it. Fails if the target URI is already taken.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMoveConcept,
}

func runMoveConcept(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.engine.MoveConcept(args[0], args[1])
	if err != nil {
		return fmt.Errorf("move concept: %w", err)
	}
	if !ok {
		return fmt.Errorf("no concept at %s", args[0])
	}
	fmt.Printf("moved %s -> %s\n", args[0], args[1])
	return nil
}

var deleteResourceCmd = &cobra.Command{
	Use:   "delete-resource <uri>",
	Short: "Delete a file or directory node",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteResource,
}

func runDeleteResource(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ok, err := s.engine.DeleteResource(args[0])
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if !ok {
		return fmt.Errorf("no resource at %s", args[0])
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
