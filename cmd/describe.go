package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nicholas-fedor/servicewrap/internal/flags"
	"github.com/nicholas-fedor/servicewrap/pkg/types"
)

// errDescribeOnly is returned by every operation of the lifecycle used by describe.
var errDescribeOnly = errors.New("describe does not launch containers")

// newDescribeCommand creates the describe subcommand.
func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print the resolved service configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  describeService,
	}
}

// describeService validates the service flags and prints the resulting descriptor.
//
// No container driver is created, so no daemon is contacted.
func describeService(cmd *cobra.Command, _ []string) error {
	flagsSet := cmd.Root().PersistentFlags()

	if _, err := flags.ReadDriver(flagsSet); err != nil {
		return err
	}

	cfg, err := flags.ReadServiceConfig(flagsSet)
	if err != nil {
		return err
	}

	svc, err := buildService(cfg, describeLifecycle{})
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)

	if err := encoder.Encode(svc.Descriptor()); err != nil {
		return fmt.Errorf("failed to encode service description: %w", err)
	}

	return encoder.Close()
}

// describeLifecycle satisfies types.Lifecycle for a wrapper that is only inspected.
type describeLifecycle struct{}

func (describeLifecycle) Start(context.Context, types.StartRequest) (types.Instance, error) {
	return nil, errDescribeOnly
}

func (describeLifecycle) Stop(context.Context, types.Instance, time.Duration) error {
	return errDescribeOnly
}

func (describeLifecycle) Logs(context.Context, types.Instance) (string, error) {
	return "", errDescribeOnly
}

func (describeLifecycle) Exec(context.Context, types.Instance, []string) (types.ExecResult, error) {
	return types.ExecResult{}, errDescribeOnly
}

func (describeLifecycle) MappedPort(context.Context, types.Instance, nat.Port) (string, error) {
	return "", errDescribeOnly
}

func (describeLifecycle) Host(context.Context, types.Instance) (string, error) {
	return "", errDescribeOnly
}
