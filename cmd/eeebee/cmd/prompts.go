package cmd

import (
	"fmt"
	"os"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts [file]",
	Short: "Check a prompts file and show its quick prompts",
	Long:  "Parses the given prompt templates (or $PROMPTS_FILE, or the built-in set) and prints the quick prompts for each role.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := os.Getenv("PROMPTS_FILE")
		if len(args) == 1 {
			path = args[0]
		}
		p, err := agent.LoadPrompts(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, role := range []domain.Role{domain.RoleStudent, domain.RoleTeacher} {
			fmt.Fprintf(out, "%s:\n", role)
			for _, q := range p.QuickPrompts(role) {
				fmt.Fprintf(out, "  %s\n", q)
			}
		}
		return nil
	},
}
