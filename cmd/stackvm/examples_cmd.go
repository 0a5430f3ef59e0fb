package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/stackvm"
	"github.com/deepnoodle-ai/stackvm/errz"
	"github.com/deepnoodle-ai/stackvm/programs"
)

func newExamplesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "examples [name]",
		Aliases: []string{"ex"},
		Short:   "Browse the embedded sample programs",
		Args:    cobra.MaximumNArgs(1),
		RunE:    examplesHandler,
	}
	cmd.Flags().BoolP("run", "r", false, "Run the example")
	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	return cmd
}

func examplesHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if err := validateFormat(format); err != nil {
		return err
	}
	asJSON := strings.ToLower(format) == "json"
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if asJSON {
			return printJSON(cmd, programs.All())
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.AppendHeader(table.Row{"Name", "Category", "Description"})
		for _, ex := range programs.All() {
			tw.AppendRow(table.Row{bold(ex.Name), ex.Category, ex.Description})
		}
		tw.Render()
		return nil
	}

	ex, err := getExample(args[0])
	if err != nil {
		return err
	}
	run, _ := cmd.Flags().GetBool("run")
	if !run {
		if asJSON {
			return printJSON(cmd, ex)
		}
		fmt.Fprintf(out, "%s %s\n\n", bold(ex.Name), ex.Description)
		fmt.Fprint(out, ex.Code)
		if !strings.HasSuffix(ex.Code, "\n") {
			fmt.Fprintln(out)
		}
		return nil
	}

	if !asJSON {
		fmt.Fprintf(out, "%s %s\n", yellow("running"), ex.Name)
	}
	output, err := stackvm.Eval(cmd.Context(), ex.Code,
		stackvm.WithFilename(ex.Filename()),
		stackvm.WithLogger(getLogger(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd, map[string]any{
			"name":     ex.Name,
			"output":   output,
			"expected": ex.Expected,
		})
	}
	fmt.Fprint(out, output)
	return nil
}

func getExample(name string) (programs.Example, error) {
	ex, ok := programs.Get(name)
	if ok {
		return ex, nil
	}
	msg := fmt.Sprintf("example %q not found", name)
	if hint := errz.Hint(name, programs.Names()); hint != "" {
		msg += " (" + hint + ")"
	}
	return programs.Example{}, fmt.Errorf("%s", msg)
}

func printJSON(cmd *cobra.Command, value any) error {
	output, err := getOutputJSON(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}
