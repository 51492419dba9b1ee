package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"mirlean/internal/prof"
	"mirlean/internal/version"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	root    *cobra.Command
	logger  *zap.Logger
	profile *prof.Session
}

// newApp builds the command tree. Persistent flags are read by the
// subcommands through cmd.Root().
func newApp() *app {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:               "mirlean",
		Short:             "Translate MIR crate bundles into Lean definitions",
		Long:              `mirlean reads a crate bundle exported by a compiler front-end and renders every definition as a Lean term over the sem monad`,
		Version:           version.Plain(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().String("config", "", "path to mirlean.toml (default: nearest one above the bundle)")
	root.PersistentFlags().Int("jobs", 0, "max parallel translations (0=auto)")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("ui", "auto", "progress UI mode (auto|on|off)")
	root.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this file")
	root.PersistentFlags().String("memprofile", "", "write a heap profile to this file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a runtime trace to this file")

	root.AddCommand(a.translateCmd())
	root.AddCommand(a.dumpCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	a.root = root
	return a
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return err
	}
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	a.logger = logger

	useColor, err := colorEnabled(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !useColor

	var paths prof.Paths
	flags := cmd.Root().PersistentFlags()
	if paths.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return err
	}
	if paths.Mem, err = flags.GetString("memprofile"); err != nil {
		return err
	}
	if paths.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return err
	}
	a.profile, err = prof.Start(paths)
	return err
}

// close stops profiling and flushes the logger, whatever the command returned.
func (a *app) close() {
	if err := a.profile.Stop(); err != nil {
		a.logger.Error("failed to write profiles", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// main executes the root command and exits with status 1 on failure.
func main() {
	a := newApp()
	err := a.root.Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
