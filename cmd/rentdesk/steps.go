package main

import (
	"fmt"

	"github.com/aretw0/rentdesk"
	"github.com/aretw0/rentdesk/internal/presentation/graph"
	"github.com/aretw0/rentdesk/pkg/adapters/memory"
	"github.com/aretw0/rentdesk/pkg/wizard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stepsCmd = &cobra.Command{
	Use:   "steps [wizard]",
	Short: "Describe the steps and fields of the wizards",
	Long: `Prints the step layout of one wizard, or of all of them, as YAML or as a
Mermaid flowchart (--format mermaid).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		// Definitions do not depend on the backend; the in-memory one is enough.
		engine, err := rentdesk.New(memory.New(nil))
		if err != nil {
			return err
		}
		names := engine.Wizards()
		if len(args) == 1 {
			names = args[:1]
		}

		var defs []*wizard.Definition
		for _, name := range names {
			def, err := engine.Definition(name)
			if err != nil {
				return err
			}
			defs = append(defs, def)
		}

		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			for _, def := range defs {
				fmt.Fprintln(out, graph.GenerateMermaid(def, nil))
			}
			return nil
		case "yaml":
			docs := make([]wizard.Description, 0, len(defs))
			for _, def := range defs {
				docs = append(docs, def.Describe())
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(docs)
		}
		return fmt.Errorf("unknown format %q (supported: yaml, mermaid)", format)
	},
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.Flags().String("format", "yaml", "Output format: yaml or mermaid")
}
