package main

import (
	"errors"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configName = ".stackvm"

// initConfig reads the config file, if any. An explicitly named file must
// exist; the default file in the home directory is optional.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("toml")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// getLogger returns a console logger on w at the configured level.
func getLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:     w,
		NoColor: viper.GetBool("no-color") || !isTerminal(w),
	}).Level(level).With().Timestamp().Logger()
}

// input is assembly source along with the name used in diagnostics.
type input struct {
	source   string
	filename string
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Assembly source to use")
	cmd.Flags().Bool("stdin", false, "Read assembly source from stdin")
}

// getInput determines what source to operate on. There are three
// possibilities:
// 1. --code <source>
// 2. --stdin (read source from stdin)
// 3. path as args[0]
func getInput(cmd *cobra.Command, args []string) (input, error) {
	var codeFlagSet bool
	if f := cmd.Flags().Lookup("code"); f != nil && f.Changed {
		codeFlagSet = true
	}
	stdinFlagSet, _ := cmd.Flags().GetBool("stdin")
	pathSupplied := len(args) > 0

	count := 0
	for _, set := range []bool{codeFlagSet, stdinFlagSet, pathSupplied} {
		if set {
			count++
		}
	}
	if count > 1 {
		return input{}, errors.New("multiple input sources specified")
	}
	if count == 0 {
		return input{}, errors.New("no input provided")
	}

	switch {
	case stdinFlagSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return input{}, err
		}
		return input{source: string(data), filename: "<stdin>"}, nil
	case pathSupplied:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return input{}, err
		}
		return input{source: string(data), filename: args[0]}, nil
	}
	code, _ := cmd.Flags().GetString("code")
	return input{source: code, filename: "<code>"}, nil
}
