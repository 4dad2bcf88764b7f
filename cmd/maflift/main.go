// Package main provides the maflift command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitFailed  = 3 // validation verdict FAILED
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errValidationFailed marks a run whose files lifted fine but whose
// reference mismatch rate exceeded the threshold.
var errValidationFailed = errors.New("validation failed")

var (
	cfgFile string
	verbose bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if errors.Is(err, errValidationFailed) {
			os.Exit(ExitFailed)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maflift",
		Short: "Lift MAF files from GRCh37 to GRCh38 and validate the result",
		Long: `maflift remaps MAF (Mutation Annotation Format) files from GRCh37 to
GRCh38 coordinates using CrossMap, normalizes the output to a fixed
column schema, and validates every lifted record against the GRCh38
reference genome.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.maflift.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newLiftCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".maflift")
	}

	viper.SetEnvPrefix("MAFLIFT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// newLogger returns the logger wired into the pipeline packages. Quiet
// runs keep the human-facing summary on stderr only.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// cmdContext returns a context cancelled by SIGINT or SIGTERM.
func cmdContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// defaultDataDir is where download places chain and genome files.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".maflift")
}
