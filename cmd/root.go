package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/servicewrap/internal/flags"
	"github.com/nicholas-fedor/servicewrap/internal/meta"
	"github.com/nicholas-fedor/servicewrap/pkg/container"
	"github.com/nicholas-fedor/servicewrap/pkg/modules/keyset"
	"github.com/nicholas-fedor/servicewrap/pkg/probe"
	"github.com/nicholas-fedor/servicewrap/pkg/service"
	"github.com/nicholas-fedor/servicewrap/pkg/testcontainer"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// PresetKeyset names the built-in JWKS key server preset.
const PresetKeyset = "keyset"

// errUnknownPreset indicates a --preset value with no built-in service behind it.
var errUnknownPreset = errors.New("unknown preset")

// rootCmd is the root command of the servicewrap CLI.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command with its subcommands. Flags are registered by init.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "servicewrap",
		Short:             "Runs a containerized service and waits until it is healthy",
		Long:              "\nServicewrap launches a service container, probes it until it is ready and removes it again.",
		PersistentPreRunE: preRun,
		SilenceUsage:      true,
	}

	root.AddCommand(newRunCommand(), newCheckCommand(), newDescribeCommand())

	return root
}

func init() {
	flags.SetDefaults()
	flags.RegisterDockerFlags(rootCmd)
	flags.RegisterServiceFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

// preRun configures logging, file-backed secrets and the Docker environment for every subcommand.
func preRun(cmd *cobra.Command, _ []string) error {
	root := cmd.Root()
	flagsSet := root.PersistentFlags()

	if err := flags.ProcessFlagAliases(flagsSet); err != nil {
		return fmt.Errorf("failed to process flag aliases: %w", err)
	}

	if err := flags.SetupLogging(flagsSet); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if err := flags.GetSecretsFromFiles(root); err != nil {
		return err
	}

	if err := flags.EnvConfig(root); err != nil {
		return fmt.Errorf("failed to configure Docker environment: %w", err)
	}

	probe.UserAgent = meta.UserAgent

	logrus.WithField("version", meta.Version).Debug("Configured servicewrap")

	return nil
}

// newLifecycle creates the container driver selected by --driver.
func newLifecycle(cmd *cobra.Command) (types.Lifecycle, error) {
	flagsSet := cmd.Root().PersistentFlags()

	driver, err := flags.ReadDriver(flagsSet)
	if err != nil {
		return nil, err
	}

	opts, err := flags.ReadClientOptions(flagsSet)
	if err != nil {
		return nil, err
	}

	logrus.WithField("driver", driver).Debug("Creating container driver")

	if driver == flags.DriverTestcontainers {
		return testcontainer.NewProvider(testcontainer.Options{
			AlwaysPull: opts.PullPolicy == container.PullAlways,
			Platform:   opts.Platform,
		}), nil
	}

	lifecycle, err := container.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return lifecycle, nil
}

// newService builds the wrapper described by the service flags.
//
// Parameters:
//   - cmd: Command whose root holds the service flags.
//   - extra: Options appended after those derived from flags, e.g. observers.
//
// Returns:
//   - *service.Service: Unstarted service.
//   - flags.ServiceConfig: Configuration read from the flags.
//   - error: Non-nil on invalid flags or configuration.
func newService(cmd *cobra.Command, extra ...service.Option) (*service.Service, flags.ServiceConfig, error) {
	cfg, err := flags.ReadServiceConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, cfg, err
	}

	lifecycle, err := newLifecycle(cmd)
	if err != nil {
		return nil, cfg, err
	}

	svc, err := buildService(cfg, lifecycle, extra...)

	return svc, cfg, err
}

// buildService wraps the configured image or preset around the given driver.
func buildService(
	cfg flags.ServiceConfig,
	lifecycle types.Lifecycle,
	extra ...service.Option,
) (*service.Service, error) {
	opts := append(serviceOptions(cfg), extra...)

	switch cfg.Preset {
	case "":
		return service.New(lifecycle, cfg.Image, cfg.Port, opts...)
	case PresetKeyset:
		return keyset.New(lifecycle, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownPreset, cfg.Preset)
	}
}

// serviceOptions translates the service flags into options.
//
// The HTTP probe flags only apply to custom images; presets bring their own probe unless a probe
// command is given.
func serviceOptions(cfg flags.ServiceConfig) []service.Option {
	var opts []service.Option

	if cfg.Version != "" {
		opts = append(opts, service.WithVersion(cfg.Version))
	}

	if len(cfg.Env) > 0 {
		opts = append(opts, service.WithEnv(cfg.Env))
	}

	if len(cfg.Cmd) > 0 {
		opts = append(opts, service.WithCmd(cfg.Cmd...))
	}

	if len(cfg.Labels) > 0 {
		opts = append(opts, service.WithLabels(cfg.Labels))
	}

	if cfg.Name != "" {
		opts = append(opts, service.WithName(cfg.Name))
	}

	if cfg.HostPort != "" {
		opts = append(opts, service.WithHostPort(cfg.HostPort))
	}

	switch {
	case len(cfg.ProbeCommand) > 0:
		opts = append(opts, service.WithProbe(probe.Exec{Command: cfg.ProbeCommand}))
	case cfg.Preset == "":
		opts = append(opts, service.WithProbe(probe.HTTP{
			Path:         cfg.ProbePath,
			Scheme:       cfg.ProbeScheme,
			RequiredKeys: cfg.ProbeKeys,
		}))
	}

	if cfg.StartupTimeout > 0 {
		opts = append(opts, service.WithStartupTimeout(cfg.StartupTimeout))
	}

	if cfg.StopTimeout > 0 {
		opts = append(opts, service.WithStopTimeout(cfg.StopTimeout))
	}

	return opts
}
