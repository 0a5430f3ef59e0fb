package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/stackvm"
	"github.com/deepnoodle-ai/stackvm/vm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Assemble and execute a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHandler,
	}
	addInputFlags(cmd)
	cmd.Flags().String("entry", "", "Label or address to start execution at")
	cmd.Flags().Bool("trace", false, "Log every executed instruction to stderr")
	cmd.Flags().Int64("max-steps", 0, "Maximum number of instructions to execute (0 is unlimited)")
	cmd.Flags().Bool("timing", false, "Show execution time")
	viper.BindPFlag("trace", cmd.Flags().Lookup("trace"))
	viper.BindPFlag("max-steps", cmd.Flags().Lookup("max-steps"))
	viper.BindPFlag("timing", cmd.Flags().Lookup("timing"))
	return cmd
}

func runHandler(cmd *cobra.Command, args []string) error {
	in, err := getInput(cmd, args)
	if err != nil {
		return err
	}
	logger := getLogger(cmd.ErrOrStderr())

	program, err := stackvm.Assemble(in.source,
		stackvm.WithFilename(in.filename),
		stackvm.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []stackvm.Option{
		stackvm.WithOutput(cmd.OutOrStdout()),
		stackvm.WithLogger(logger),
		stackvm.WithMaxSteps(viper.GetInt64("max-steps")),
	}
	entryOpt, err := getEntryOption(cmd)
	if err != nil {
		return err
	}
	if entryOpt != nil {
		opts = append(opts, entryOpt)
	}
	if viper.GetBool("trace") {
		opts = append(opts, stackvm.WithObserver(vm.NewTracer(logger.Level(zerolog.DebugLevel))))
	}

	start := time.Now()
	if err := stackvm.Run(cmd.Context(), program, opts...); err != nil {
		return err
	}
	if viper.GetBool("timing") {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", time.Since(start))
	}
	return nil
}

// getEntryOption interprets --entry as an address if it is an integer and as
// a label name otherwise.
func getEntryOption(cmd *cobra.Command) (stackvm.Option, error) {
	entry, _ := cmd.Flags().GetString("entry")
	if entry == "" {
		return nil, nil
	}
	if addr, err := strconv.Atoi(entry); err == nil {
		if addr < 0 {
			return nil, fmt.Errorf("invalid entry address: %d", addr)
		}
		return stackvm.WithEntry(addr), nil
	}
	return stackvm.WithEntryLabel(entry), nil
}
