// Package flags manages command-line flags and environment variables for servicewrap configuration.
// It configures the Docker connection, the wrapped service, and logging via Cobra and Viper.
//
// Key components:
//   - RegisterDockerFlags: Adds Docker API client flags.
//   - RegisterServiceFlags: Adds the service definition and readiness probe flags.
//   - RegisterSystemFlags: Adds logging, scheduling, notification and HTTP flags.
//   - ReadServiceConfig: Collects the service definition, merging --env-file and --env.
//   - SetupLogging: Configures logrus based on flags.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterServiceFlags(cmd)
//	flags.RegisterSystemFlags(cmd)
//	err := flags.SetupLogging(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
//
// Every flag can also be set through a SERVICEWRAP_* environment variable, e.g.
// SERVICEWRAP_IMAGE or SERVICEWRAP_HEALTH_WINDOW. Env files are read through afero
// and parsed with godotenv.
package flags
