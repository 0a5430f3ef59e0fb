package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE:  versionHandler,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	return cmd
}

func versionHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if err := validateFormat(format); err != nil {
		return err
	}
	if strings.ToLower(format) == "json" {
		return printJSON(cmd, map[string]any{
			"version": version,
			"commit":  commit,
			"date":    date,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
}
