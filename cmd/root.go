// Package cmd implements the bld command line interface.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bldsys/bld/pkg/bldsys"
)

// Exit codes, stable for CI consumers.
const (
	exitCannotLoadProject = 1
	exitInvalidArguments  = 2
	exitExecutionError    = 3
)

// invalidArgsError marks command line mistakes that should exit with
// exitInvalidArguments.
type invalidArgsError struct {
	reason string
}

var _ error = (*invalidArgsError)(nil)

func (e invalidArgsError) Error() string {
	return e.reason
}

var rootCmd = &cobra.Command{
	Use:   "bld [modules...] [name=value...]",
	Short: "Build helper for multi-language projects",
	Long: `bld loads the projectfile.star declaration found in PROJECT_HOME and runs
the selected entry point of each module's build script from the bld/
directory. Without module arguments, every declared module is built in
declaration order. name=value arguments set options declared in the
projectfile.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

func init() {
	rootCmd.Flags().BoolP("clean", "c", false, "clean the project")
	rootCmd.Flags().BoolP("build", "b", false, "build the project (the default)")
	rootCmd.Flags().BoolP("install", "i", false, "install the project")
	rootCmd.Flags().BoolP("package", "p", false, "package the project")
	rootCmd.Flags().StringP("build-dir", "D", "", "override the build directory")
	rootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	rootCmd.Flags().BoolP("debug", "d", false, "enable debug logs")
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := zerolog.New(NewConsoleWriter()).With().Str("run", nanoid.New()).Logger()
	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = bldsys.WithLogger(ctx, &logger)

	projectDir, err := projectDir()
	if err != nil {
		return err
	}

	config, err := bldsys.LoadConfig(ctx, projectDir)
	if err != nil {
		return err
	}

	if buildDir, _ := cmd.Flags().GetString("build-dir"); buildDir != "" {
		config.BuildDir = buildDir
	}

	op, err := selectOp(cmd)
	if err != nil {
		return err
	}

	// module names and name=value options share the argument list
	modules := make([]string, 0, len(args))
	options := make(map[string]string, len(config.Options))
	for _, option := range config.Options {
		options[option.Name] = option.Default
	}
	for _, part := range args {
		pos := strings.Index(part, "=")
		if pos < 0 {
			modules = append(modules, part)
			continue
		}

		name := part[:pos]
		if _, declared := config.Option(name); !declared {
			return invalidArgsError{reason: "unknown option " + name}
		}
		options[name] = part[pos+1:]
	}

	project, err := bldsys.NewProject(config, projectDir)
	if err != nil {
		return err
	}
	if dry, _ := cmd.Flags().GetBool("dry"); dry {
		project.SetDryRun(true)
	}

	logger.Debug().Msg("==========")
	logger.Debug().Msgf("Name:              %s", project.Name())
	logger.Debug().Msgf("Version:           %s", project.Version())
	logger.Debug().Msgf("Root directory:    %s", project.RootDir())
	logger.Debug().Msgf("Build directory:   %s", project.BuildDir())
	logger.Debug().Msgf("Install directory: %s", project.InstallDir())
	logger.Debug().Msgf("Dist. directory:   %s", project.DistDir())
	logger.Debug().Msgf("Report directory:  %s", project.ReportDir())
	logger.Debug().Msgf("Modules:           %s", strings.Join(config.Modules, ", "))
	logger.Debug().Msg("==========")

	return project.Build(ctx, op, modules, options)
}

// projectDir resolves the project root from the PROJECT_HOME environment
// variable.
func projectDir() (string, error) {
	home := os.Getenv("PROJECT_HOME")
	if home == "" {
		return "", bldsys.ProjectNotConfiguredError{Reason: "no PROJECT_HOME environment variable defined"}
	}

	dir, err := filepath.Abs(home)
	if err != nil {
		return "", bldsys.ProjectNotConfiguredError{Path: home, Reason: err.Error()}
	}
	return dir, nil
}

func selectOp(cmd *cobra.Command) (string, error) {
	selected := make([]string, 0, 1)
	for _, op := range []string{"clean", "build", "install", "package"} {
		if on, _ := cmd.Flags().GetBool(op); on {
			selected = append(selected, op)
		}
	}

	switch len(selected) {
	case 0:
		return "build", nil
	case 1:
		return selected[0], nil
	}
	return "", invalidArgsError{reason: "only one of --clean, --build, --install and --package can be used at a time"}
}

func exitCode(err error) int {
	var configErr bldsys.ProjectNotConfiguredError
	if eris.As(err, &configErr) {
		return exitCannotLoadProject
	}

	var argsErr invalidArgsError
	var unknownErr bldsys.UnknownModuleError
	if eris.As(err, &argsErr) || eris.As(err, &unknownErr) {
		return exitInvalidArguments
	}

	return exitExecutionError
}

// Execute runs the CLI and exits the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger := zerolog.New(NewConsoleWriter())
		logger.Error().Err(err).Msg("build aborted")
		os.Exit(exitCode(err))
	}
}
