// Package commands implements the CLI commands for the trowel asset pipeline.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/trowel/internal/app"
	"go.trai.ch/trowel/internal/build"
)

// CLI represents the command line interface for trowel.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Default(ctx context.Context, opts app.RunOptions, serve app.ServeOptions) error
	Build(ctx context.Context, opts app.RunOptions) error
	Run(ctx context.Context, taskNames []string, opts app.RunOptions) error
	Watch(ctx context.Context, opts app.RunOptions) error
	Serve(ctx context.Context, opts app.ServeOptions) error
	Clean(ctx context.Context) error
	Tasks(ctx context.Context, w io.Writer) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "trowel",
		Short:         "Front-end asset pipeline with live reload",
		Long:          "Builds markup, styles, scripts, sprites, images and fonts, then watches sources and serves the result with live reload.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.Bool("halt-on-error", false, "Stop after the first stage containing a failed task")
	flags.Bool("strict", false, "Exit non-zero when any task fails")
	flags.StringP("output-mode", "o", "auto", "Output mode: auto, tty, linear or quiet")
	flags.Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	flags.IntP("parallelism", "j", 0, "Maximum number of concurrently running tasks (default: number of CPUs)")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	addServeFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return c.app.Default(cmd.Context(), runOptions(cmd), serveOptions(cmd))
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newServerCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func runOptions(cmd *cobra.Command) app.RunOptions {
	halt, _ := cmd.Flags().GetBool("halt-on-error")
	strict, _ := cmd.Flags().GetBool("strict")
	outputMode, _ := cmd.Flags().GetString("output-mode")
	ci, _ := cmd.Flags().GetBool("ci")
	parallelism, _ := cmd.Flags().GetInt("parallelism")

	// If --ci is set, override output-mode to "linear"
	if ci {
		outputMode = "linear"
	}

	return app.RunOptions{
		OutputMode:  outputMode,
		HaltOnError: halt,
		Strict:      strict,
		Parallelism: parallelism,
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "Dev server host (default from trowel.yaml or localhost)")
	cmd.Flags().IntP("port", "p", 0, "Dev server port (default from trowel.yaml or 8080)")
}

func serveOptions(cmd *cobra.Command) app.ServeOptions {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	return app.ServeOptions{Host: host, Port: port}
}
