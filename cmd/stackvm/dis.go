package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/stackvm"
	"github.com/deepnoodle-ai/stackvm/dis"
)

// listing is the JSON form of a disassembled program.
type listing struct {
	Filename     string            `json:"filename,omitempty"`
	Labels       map[string]int    `json:"labels"`
	Instructions []dis.Instruction `json:"instructions"`
}

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  disHandler,
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if err := validateFormat(format); err != nil {
		return err
	}
	in, err := getInput(cmd, args)
	if err != nil {
		return err
	}
	program, err := stackvm.Assemble(in.source,
		stackvm.WithFilename(in.filename),
		stackvm.WithLogger(getLogger(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	instructions := dis.Disassemble(program)
	if strings.ToLower(format) != "json" {
		dis.Print(instructions, cmd.OutOrStdout())
		return nil
	}

	labels := map[string]int{}
	for _, label := range program.Labels() {
		labels[label.Name] = label.Address
	}
	return printJSON(cmd, listing{
		Filename:     program.Filename(),
		Labels:       labels,
		Instructions: instructions,
	})
}
