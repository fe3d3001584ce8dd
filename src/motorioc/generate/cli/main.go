package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/external"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/generate"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/hooks"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/prompt"
	"github.com/paketo-buildpacks/packit/v2/pexec"
	"github.com/spf13/cobra"
)

var version = "v0.0.1"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "initMotorIOCs",
		Short:         "Generate EPICS motor controller IOCs from the motor-ioc-template",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newGenerateCmd(), newGuidedCmd(), newDriversCmd(), newVersionCmd())
	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every IOC listed in a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := libbuildpack.NewLogger(cmd.OutOrStdout())
			printStartMessage(logger)

			loader := config.Loader{YAML: libbuildpack.NewYAML(), Log: logger}
			run, err := loader.Load(configPath)
			if err != nil {
				logger.Error("Unable to load %s: %s", configPath, err.Error())
				return err
			}

			generator := newGenerator(logger, run.Global, run.Drivers, cmd.OutOrStdout(), cmd.ErrOrStderr())
			report(logger, generator.GenerateAll(run.Requests))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "CONFIGURE.yml", "path to the IOC configuration file")
	return cmd
}

func newGuidedCmd() *cobra.Command {
	var platformName string

	cmd := &cobra.Command{
		Use:   "guided",
		Short: "Answer prompts to generate IOCs one at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := libbuildpack.NewLogger(cmd.OutOrStdout())
			printStartMessage(logger)
			logger.Info("Welcome to initMotorIOCs!")

			platform, err := config.PlatformFor(platformName)
			if err != nil {
				return err
			}

			drivers := config.DefaultDrivers()
			prompter := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout(), drivers)

			global, err := prompter.Global(platform)
			if err != nil {
				return err
			}

			generator := newGenerator(logger, global, drivers, cmd.OutOrStdout(), cmd.ErrOrStderr())

			var results []generate.Result
			for {
				request, err := prompter.Request()
				if err != nil {
					return err
				}
				results = append(results, generator.Generate(request))

				another, err := prompter.Another()
				if err != nil {
					return err
				}
				if !another {
					break
				}
			}

			report(logger, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&platformName, "platform", "", `target platform ("linux" or "windows"), defaults to this host`)
	return cmd
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the supported motor drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			prompt.PrintDrivers(cmd.OutOrStdout(), config.DefaultDrivers())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "initMotorIOCs %s\n", version)
		},
	}
}

func newGenerator(logger *libbuildpack.Logger, global config.Global, drivers config.Drivers, stdout, stderr io.Writer) *generate.Generator {
	return &generate.Generator{
		Log:     logger,
		Global:  global,
		Drivers: drivers,
		Collaborator: &external.Shell{
			Git:     pexec.NewExecutable("git"),
			Command: &libbuildpack.Command{},
			Stdout:  stdout,
			Stderr:  stderr,
		},
		Hooks: hooks.Registered(),
	}
}

func printStartMessage(logger *libbuildpack.Logger) {
	logger.BeginStep("initMotorIOCs, Version: %s", version)
	logger.Info("Generates EPICS motor controller IOCs from %s", config.DefaultTemplateURL)
}

func report(logger *libbuildpack.Logger, results []generate.Result) {
	logger.BeginStep("Done.")
	for _, result := range results {
		if result.Outcome == generate.Generated {
			logger.Info("%s: %s", result.Request.Name, result.Outcome)
			continue
		}
		logger.Warning("%s: %s", result.Request.Name, result.Outcome)
	}
}
