package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/stackvm"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report every assembly problem in a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkHandler,
	}
	addInputFlags(cmd)
	return cmd
}

func checkHandler(cmd *cobra.Command, args []string) error {
	in, err := getInput(cmd, args)
	if err != nil {
		return err
	}
	logger := getLogger(cmd.ErrOrStderr())
	if err := stackvm.Check(in.source, stackvm.WithFilename(in.filename), stackvm.WithLogger(logger)); err != nil {
		return err
	}
	program, err := stackvm.Assemble(in.source, stackvm.WithFilename(in.filename))
	if err != nil {
		return err
	}
	stats := program.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d instructions, %d labels\n",
		green("ok"), in.filename, stats.InstructionCount, stats.LabelCount)
	return nil
}
