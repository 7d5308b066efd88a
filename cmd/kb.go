package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-cli/internal/knowledge"
	"github.com/sells-group/compliance-cli/internal/model"
)

var (
	kbProfile profileFlags
	kbJSON    bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the compliance knowledge base",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge-base entries, optionally filtered to a business profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := knowledge.LoadFile(cfg.Knowledge.Path)
		if err != nil {
			return err
		}

		entries := kb.Entries()
		if kbProfile.file != "" || cmd.Flags().Changed("state") || cmd.Flags().Changed("industry") {
			p, err := kbProfile.profile(cmd)
			if err != nil {
				return err
			}
			entries = kb.Applicable(p)
		}

		if kbJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		formatEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate [catalog.yaml]",
	Short: "Load and validate a knowledge-base catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Knowledge.Path
		if len(args) == 1 {
			path = args[0]
		}
		kb, err := knowledge.LoadFile(path)
		if err != nil {
			return err
		}
		name := path
		if name == "" {
			name = "embedded catalog"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries OK\n", name, kb.Len())
		return nil
	},
}

func formatEntries(out io.Writer, entries []model.KnowledgeBaseEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tPRIORITY\tREQUIREMENT\tCONDITIONS")
	_, _ = fmt.Fprintln(w, "--\t--------\t--------\t-----------\t----------")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Category,
			e.Priority,
			e.Requirement,
			strings.Join(e.Conditions.Describe(), "; "),
		)
	}
	_ = w.Flush()
}

func init() {
	kbProfile.register(kbListCmd)
	kbListCmd.Flags().BoolVar(&kbJSON, "json", false, "print entries as JSON")
	kbCmd.AddCommand(kbListCmd, kbValidateCmd)
	rootCmd.AddCommand(kbCmd)
}
