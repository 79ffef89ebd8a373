// Package flags manages command-line flags and environment variables for servicewrap configuration.
package flags

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/servicewrap/pkg/container"
	"github.com/nicholas-fedor/servicewrap/pkg/lifecycle"
)

// DockerAPIMinVersion specifies the minimum Docker API version required by servicewrap.
const DockerAPIMinVersion string = "1.44"

// Defaults applied through Viper when neither a flag nor an environment variable is set.
const (
	defaultStopTimeout    = 10 * time.Second
	defaultStartupTimeout = 60 * time.Second
	defaultHealthWindow   = 30 * time.Second
	defaultHookTimeout    = 60 * time.Second
)

// Container drivers selectable with --driver.
const (
	DriverDocker         = "docker"
	DriverTestcontainers = "testcontainers"
)

// Fs is the filesystem used for env files and file-backed secrets.
var Fs = afero.NewOsFs()

var (
	// errInvalidLogFormat indicates an invalid log format was specified.
	errInvalidLogFormat = errors.New("invalid log format specified")
	// errInvalidLogLevel indicates an invalid log level was specified.
	errInvalidLogLevel = errors.New("invalid log level specified")
	// errSetEnvFailed indicates a failure to set an environment variable.
	errSetEnvFailed = errors.New("failed to set environment variable")
	// errOpenFileFailed indicates a failure to open a file for reading secrets.
	errOpenFileFailed = errors.New("failed to open secret file")
	// errCloseFileFailed indicates a failure to close a file after reading secrets.
	errCloseFileFailed = errors.New("failed to close secret file")
	// errReplaceSliceFailed indicates a failure to replace a slice value in a flag.
	errReplaceSliceFailed = errors.New("failed to replace slice value in flag")
	// errReadFileFailed indicates a failure to read a file's contents.
	errReadFileFailed = errors.New("failed to read secret file")
	// errSetFlagFailed indicates a failure to read or set a flag's value.
	errSetFlagFailed = errors.New("failed to set flag value")
	// errReadEnvFileFailed indicates an env file could not be read or parsed.
	errReadEnvFileFailed = errors.New("failed to read env file")
	// errInvalidKeyValue indicates a KEY=VALUE argument without a key or separator.
	errInvalidKeyValue = errors.New("expected KEY=VALUE")
	// errMissingImage indicates neither an image nor a preset was given.
	errMissingImage = errors.New("either --image or --preset is required")
	// errMissingPort indicates an image was given without its service port.
	errMissingPort = errors.New("--port is required together with --image")
	// errInvalidDriver indicates an unknown --driver value.
	errInvalidDriver = errors.New("invalid container driver")
)

// ServiceConfig holds the service definition assembled from flags, env files and the environment.
type ServiceConfig struct {
	Preset         string
	Image          string
	Version        string
	Port           string
	HostPort       string
	Name           string
	Env            map[string]string
	Cmd            []string
	Labels         map[string]string
	ProbePath      string
	ProbeScheme    string
	ProbeKeys      []string
	ProbeCommand   []string
	StartupTimeout time.Duration
	StopTimeout    time.Duration
	HealthWindow   time.Duration
	Hooks          lifecycle.Hooks
}

// RunConfig holds the settings of the long-running run command.
type RunConfig struct {
	ProbeSchedule        string
	NotificationURLs     []string
	NotificationTemplate string
	NotificationTitle    string
	NotificationDelay    time.Duration
	NotificationStdout   bool
	MetricsAddr          string
	APIToken             string
}

// RegisterDockerFlags adds flags used directly by the Docker API client to the root command.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
	flags.BoolP("tlsverify", "v", envBool("DOCKER_TLS_VERIFY"), "use TLS and verify the remote")
	flags.StringP(
		"api-version",
		"a",
		envString("DOCKER_API_VERSION"),
		"api version to use by docker client",
	)

	flags.String(
		"driver",
		envString("SERVICEWRAP_DRIVER"),
		"Container driver. Possible values: docker, testcontainers")

	flags.String(
		"pull-policy",
		envString("SERVICEWRAP_PULL_POLICY"),
		"When to pull the service image. Possible values: missing, always, never")

	flags.String(
		"stop-signal",
		envString("SERVICEWRAP_STOP_SIGNAL"),
		"Signal sent to the container on stop, defaults to the image's or SIGTERM")

	flags.String(
		"platform",
		envString("SERVICEWRAP_PLATFORM"),
		"Platform of the service container, e.g. linux/amd64")

	flags.Bool(
		"remove-volumes",
		envBool("SERVICEWRAP_REMOVE_VOLUMES"),
		"Remove anonymous volumes together with the container")

	flags.String(
		"container-host",
		envString("SERVICEWRAP_CONTAINER_HOST"),
		"Address used to reach published ports, derived from the daemon host when empty")
}

// RegisterServiceFlags adds the flags describing the wrapped service and its readiness probe.
func RegisterServiceFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"preset",
		"p",
		envString("SERVICEWRAP_PRESET"),
		"Use a built-in service definition. Possible values: keyset")

	flags.StringP(
		"image",
		"i",
		envString("SERVICEWRAP_IMAGE"),
		"Image name of the service, without a tag")

	flags.String(
		"version",
		envString("SERVICEWRAP_VERSION"),
		"Image tag of the service, defaults to latest")

	flags.String(
		"port",
		envString("SERVICEWRAP_PORT"),
		"Container port the service listens on, e.g. 8080 or 8080/tcp")

	flags.String(
		"host-port",
		envString("SERVICEWRAP_HOST_PORT"),
		"Fixed host port to publish the service port on, random when empty")

	flags.String(
		"name",
		envString("SERVICEWRAP_NAME"),
		"Container name, generated by the daemon when empty")

	flags.StringSliceP(
		"env",
		"e",
		envStringSlice("SERVICEWRAP_ENV"),
		"Environment variable for the service in KEY=VALUE form, may be repeated")

	flags.String(
		"env-file",
		envString("SERVICEWRAP_ENV_FILE"),
		"File with KEY=VALUE lines added to the service environment")

	flags.String(
		"cmd",
		envString("SERVICEWRAP_CMD"),
		"Space-separated command overriding the image's default")

	flags.StringSlice(
		"label",
		envStringSlice("SERVICEWRAP_LABELS"),
		"Container label in KEY=VALUE form, may be repeated")

	flags.String(
		"probe-path",
		envString("SERVICEWRAP_PROBE_PATH"),
		"HTTP path requested by the readiness probe")

	flags.String(
		"probe-scheme",
		envString("SERVICEWRAP_PROBE_SCHEME"),
		"URL scheme used by the readiness probe")

	flags.StringSlice(
		"probe-keys",
		envStringSlice("SERVICEWRAP_PROBE_KEYS"),
		"Top-level JSON keys the readiness response must contain")

	flags.String(
		"probe-command",
		envString("SERVICEWRAP_PROBE_COMMAND"),
		"Space-separated command run inside the container instead of the HTTP probe")

	flags.Duration(
		"startup-timeout",
		envDuration("SERVICEWRAP_STARTUP_TIMEOUT"),
		"Maximum time to create and start the service container")

	flags.DurationP(
		"stop-timeout",
		"t",
		envDuration("SERVICEWRAP_STOP_TIMEOUT"),
		"Timeout before the service container is forcefully stopped")

	flags.DurationP(
		"health-window",
		"w",
		envDuration("SERVICEWRAP_HEALTH_WINDOW"),
		"How long to wait for the service to become healthy")

	flags.String(
		"post-start-command",
		envString("SERVICEWRAP_POST_START_COMMAND"),
		"Space-separated command run inside the container once the service is healthy")

	flags.String(
		"pre-stop-command",
		envString("SERVICEWRAP_PRE_STOP_COMMAND"),
		"Space-separated command run inside the container before it is stopped")

	flags.Duration(
		"hook-timeout",
		envDuration("SERVICEWRAP_HOOK_TIMEOUT"),
		"Maximum runtime of each lifecycle hook command")
}

// RegisterSystemFlags adds flags that modify servicewrap's logging and run behavior to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"log-format",
		"l",
		viper.GetString("SERVICEWRAP_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON",
	)

	flags.String(
		"log-level",
		envString("SERVICEWRAP_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.BoolP(
		"debug",
		"d",
		envBool("SERVICEWRAP_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("SERVICEWRAP_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.Bool(
		"no-color",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")

	flags.StringP(
		"probe-schedule",
		"s",
		envString("SERVICEWRAP_PROBE_SCHEDULE"),
		"Cron expression, or @every duration, for re-probing a running service")

	flags.StringSliceP(
		"notification-url",
		"n",
		envStringSlice("SERVICEWRAP_NOTIFICATION_URL"),
		"The shoutrrr URL to send health notifications to")

	flags.String(
		"notification-template",
		envString("SERVICEWRAP_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the health messages")

	flags.String(
		"notification-title",
		envString("SERVICEWRAP_NOTIFICATION_TITLE"),
		"Title passed to the notification services")

	flags.Duration(
		"notification-delay",
		envDuration("SERVICEWRAP_NOTIFICATION_DELAY"),
		"Delay before sending notifications")

	flags.Bool(
		"notification-log-stdout",
		envBool("SERVICEWRAP_NOTIFICATION_LOG_STDOUT"),
		"Write notification logs to stdout instead of logging (to stderr)")

	flags.String(
		"http-metrics-addr",
		envString("SERVICEWRAP_HTTP_METRICS_ADDR"),
		"Listen address for the metrics and status endpoints, disabled when empty")

	flags.String(
		"http-api-token",
		envString("SERVICEWRAP_HTTP_API_TOKEN"),
		"Sets an authentication token for the HTTP endpoints")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKER_HOST", "unix:///var/run/docker.sock")
	viper.SetDefault("DOCKER_API_VERSION", DockerAPIMinVersion)
	viper.SetDefault("SERVICEWRAP_PULL_POLICY", string(container.PullMissing))
	viper.SetDefault("SERVICEWRAP_PROBE_PATH", "/")
	viper.SetDefault("SERVICEWRAP_PROBE_SCHEME", "http")
	viper.SetDefault("SERVICEWRAP_STARTUP_TIMEOUT", defaultStartupTimeout)
	viper.SetDefault("SERVICEWRAP_STOP_TIMEOUT", defaultStopTimeout)
	viper.SetDefault("SERVICEWRAP_HEALTH_WINDOW", defaultHealthWindow)
	viper.SetDefault("SERVICEWRAP_HOOK_TIMEOUT", defaultHookTimeout)
	viper.SetDefault("SERVICEWRAP_NOTIFICATION_URL", []string{})
	viper.SetDefault("SERVICEWRAP_DRIVER", DriverDocker)
	viper.SetDefault("SERVICEWRAP_LOG_LEVEL", "info")
	viper.SetDefault("SERVICEWRAP_LOG_FORMAT", "auto")
}

// EnvConfig sets environment variables based on Docker-related flags.
//
// The Docker client reads its connection settings from the environment.
func EnvConfig(cmd *cobra.Command) error {
	var err error

	var host string

	var tls bool

	var version string

	flags := cmd.PersistentFlags()

	if host, err = flags.GetString("host"); err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if tls, err = flags.GetBool("tlsverify"); err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if version, err = flags.GetString("api-version"); err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err = setEnvOptStr("DOCKER_HOST", host); err != nil {
		return err
	}

	if err = setEnvOptBool("DOCKER_TLS_VERIFY", tls); err != nil {
		return err
	}

	if err = setEnvOptStr("DOCKER_API_VERSION", version); err != nil {
		return err
	}

	return nil
}

// ReadDriver returns the selected container driver.
func ReadDriver(flags *pflag.FlagSet) (string, error) {
	driver, err := flags.GetString("driver")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	switch driver = strings.ToLower(driver); driver {
	case "", DriverDocker:
		return DriverDocker, nil
	case DriverTestcontainers:
		return driver, nil
	default:
		return "", fmt.Errorf("%w: %q", errInvalidDriver, driver)
	}
}

// ReadClientOptions builds the Docker lifecycle client options from the Docker flags.
func ReadClientOptions(flags *pflag.FlagSet) (container.ClientOptions, error) {
	var opts container.ClientOptions

	pullPolicy, err := flags.GetString("pull-policy")
	if err != nil {
		return opts, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if opts.StopSignal, err = flags.GetString("stop-signal"); err != nil {
		return opts, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if opts.Platform, err = flags.GetString("platform"); err != nil {
		return opts, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if opts.RemoveVolumes, err = flags.GetBool("remove-volumes"); err != nil {
		return opts, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if opts.Host, err = flags.GetString("container-host"); err != nil {
		return opts, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	opts.PullPolicy = container.PullPolicy(strings.ToLower(pullPolicy))

	return opts, nil
}

// ReadServiceConfig assembles the service definition from the service flags.
//
// Variables from --env-file are applied first so that --env entries override them.
func ReadServiceConfig(flags *pflag.FlagSet) (ServiceConfig, error) {
	var (
		cfg  ServiceConfig
		err  error
		str  = stringReader(flags, &err)
		list = sliceReader(flags, &err)
		dur  = durationReader(flags, &err)
	)

	cfg.Preset = strings.ToLower(str("preset"))
	cfg.Image = str("image")
	cfg.Version = str("version")
	cfg.Port = str("port")
	cfg.HostPort = str("host-port")
	cfg.Name = str("name")
	cfg.Cmd = strings.Fields(str("cmd"))
	cfg.ProbePath = str("probe-path")
	cfg.ProbeScheme = str("probe-scheme")
	cfg.ProbeKeys = compact(list("probe-keys"))
	cfg.ProbeCommand = strings.Fields(str("probe-command"))
	cfg.StartupTimeout = dur("startup-timeout")
	cfg.StopTimeout = dur("stop-timeout")
	cfg.HealthWindow = dur("health-window")
	cfg.Hooks = lifecycle.Hooks{
		PostStart: strings.Fields(str("post-start-command")),
		PreStop:   strings.Fields(str("pre-stop-command")),
		Timeout:   dur("hook-timeout"),
	}
	envFile := str("env-file")
	envList := list("env")
	labelList := list("label")

	if err != nil {
		return cfg, err
	}

	if cfg.Preset == "" && cfg.Image == "" {
		return cfg, errMissingImage
	}

	if cfg.Image != "" && cfg.Port == "" {
		return cfg, errMissingPort
	}

	cfg.Env = map[string]string{}

	if envFile != "" {
		fromFile, err := ReadEnvFile(envFile)
		if err != nil {
			return cfg, err
		}

		for key, value := range fromFile {
			cfg.Env[key] = value
		}
	}

	fromFlags, err := parseKeyValues(envList)
	if err != nil {
		return cfg, fmt.Errorf("--env: %w", err)
	}

	for key, value := range fromFlags {
		cfg.Env[key] = value
	}

	if cfg.Labels, err = parseKeyValues(labelList); err != nil {
		return cfg, fmt.Errorf("--label: %w", err)
	}

	return cfg, nil
}

// ReadRunConfig reads the flags controlling the run command.
func ReadRunConfig(flags *pflag.FlagSet) (RunConfig, error) {
	var (
		cfg  RunConfig
		err  error
		str  = stringReader(flags, &err)
		list = sliceReader(flags, &err)
	)

	cfg.ProbeSchedule = str("probe-schedule")
	cfg.NotificationURLs = compact(list("notification-url"))
	cfg.NotificationTemplate = str("notification-template")
	cfg.NotificationTitle = str("notification-title")
	cfg.MetricsAddr = str("http-metrics-addr")
	cfg.APIToken = str("http-api-token")

	if err != nil {
		return cfg, err
	}

	if cfg.NotificationDelay, err = flags.GetDuration("notification-delay"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.NotificationStdout, err = flags.GetBool("notification-log-stdout"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	return cfg, nil
}

// ReadEnvFile parses a dotenv style file into a map of variables.
func ReadEnvFile(path string) (map[string]string, error) {
	content, err := afero.ReadFile(Fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errReadEnvFileFailed, path, err)
	}

	env, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errReadEnvFileFailed, path, err)
	}

	logrus.WithFields(logrus.Fields{
		"file":      path,
		"variables": len(env),
	}).Debug("Loaded env file")

	return env, nil
}

// parseKeyValues splits KEY=VALUE entries into a map, later entries winning.
func parseKeyValues(entries []string) (map[string]string, error) {
	values := make(map[string]string, len(entries))

	for _, entry := range entries {
		if entry == "" {
			continue
		}

		key, value, found := strings.Cut(entry, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidKeyValue, entry)
		}

		values[strings.TrimSpace(key)] = value
	}

	return values, nil
}

// compact drops empty entries, which Viper produces for unset slice variables.
func compact(values []string) []string {
	result := make([]string, 0, len(values))

	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			result = append(result, value)
		}
	}

	return result
}

func stringReader(flags *pflag.FlagSet, errp *error) func(string) string {
	return func(name string) string {
		value, err := flags.GetString(name)
		if err != nil && *errp == nil {
			*errp = fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		return value
	}
}

func sliceReader(flags *pflag.FlagSet, errp *error) func(string) []string {
	return func(name string) []string {
		value, err := flags.GetStringSlice(name)
		if err != nil && *errp == nil {
			*errp = fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		return value
	}
}

func durationReader(flags *pflag.FlagSet, errp *error) func(string) time.Duration {
	return func(name string) time.Duration {
		value, err := flags.GetDuration(name)
		if err != nil && *errp == nil {
			*errp = fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		return value
	}
}

// setEnvOptStr sets an environment variable to a specified string value if needed.
func setEnvOptStr(env string, opt string) error {
	if opt == "" || opt == os.Getenv(env) {
		return nil
	}

	if err := os.Setenv(env, opt); err != nil {
		return fmt.Errorf("%w: %s: %w", errSetEnvFailed, env, err)
	}

	return nil
}

// setEnvOptBool sets an environment variable to "1" if the boolean is true.
func setEnvOptBool(env string, opt bool) error {
	if opt {
		return setEnvOptStr(env, "1")
	}

	return nil
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
func GetSecretsFromFiles(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"notification-url",
		"http-api-token",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %v: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates a flag's value with file contents if it references a file.
//
// Slice flags get one value per non-empty line of each referenced file.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return nil
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			file, err := Fs.Open(value)
			if err != nil {
				return fmt.Errorf("%w: %w", errOpenFileFailed, err)
			}

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				if line := scanner.Text(); line != "" {
					values = append(values, line)
				}
			}

			if err := file.Close(); err != nil {
				return fmt.Errorf("%w: %w", errCloseFileFailed, err)
			}
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := afero.ReadFile(Fs, value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// isFilePath determines if a string likely represents an existing file.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// A colon past the drive letter position means a URL rather than a path.
		return false
	}

	_, err := Fs.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases synchronizes flag values based on helper flags.
func ProcessFlagAliases(flags *pflag.FlagSet) error {
	for _, alias := range []string{"debug", "trace"} {
		enabled, err := flags.GetBool(alias)
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		if !enabled {
			continue
		}

		if err := flags.Set("log-level", alias); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// SetupLogging configures the global logger based on log-related flags.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}
