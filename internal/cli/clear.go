package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the entire graph and active context",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if !clearYes {
		fmt.Fprintf(os.Stderr, "delete all nodes and relations in workspace %q? [y/N] ", s.ws.ID)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "aborted")
			return nil
		}
	}

	if err := s.db.Clear(); err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}
	if err := s.ctx.ForceClear(); err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	fmt.Fprintf(os.Stderr, "workspace %q cleared\n", s.ws.ID)
	return nil
}
