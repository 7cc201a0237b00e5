// Command plategen designs plate experiments from a YAML description and
// exports setup and per-replicate sample workbooks to blob storage.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "plategen",
		Short: "Design randomized plate experiments",
		Long: `plategen turns an experiment description into inducer preparation
recipes, plate layouts and one sample table per replicate.

Doses are laid out on plates by row, column, well or media. Replicates
shuffle doses and plate order from a fixed seed, so a description and a seed
always produce the same plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "experiment.yaml", "experiment description")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format override (json, console)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "shorthand for --log-level=debug")

	root.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newInitCmd(),
	)
	return root
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "plategen: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}
