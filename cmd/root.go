package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "sky",
		Short:         "Skygear CLI (sky): talk to a Skygear server from the terminal",
		Long:          "sky wraps the Skygear client container: log in, call cloud functions, manage roles and fetch records against a configured endpoint.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.wire(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default ~/.skygear/config.toml)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "Skygear server endpoint")
	flags.StringVar(&opts.apiKey, "api-key", "", "Skygear API key")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(app),
		newStatusCmd(app),
		newLambdaCmd(app),
		newRoleCmd(app),
		newRecordCmd(app),
	)

	return rootCmd
}
