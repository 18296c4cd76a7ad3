// Package cmd is the command line interface of the driver.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configName = "cozy-cloudfiles"

var (
	cfgFileFlag string
	forceFlag   bool
	yesFlag     bool
)

// RootCmd is the root command of the CLI.
var RootCmd = &cobra.Command{
	Use:          "cozy-cloudfiles",
	Short:        "A file service over Rackspace Cloud Files and OpenStack Swift",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.ReadFile(cfgFileFlag, configName)
	},
}

func init() {
	config.SetDefaults()

	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&cfgFileFlag, "config", "c", "", "configuration file")
	flags.String("log-level", "info", "logging level (debug, info, warning, error)")
	flags.String("service", "", "id of the service whose configuration is used")
	flags.String("container", "", "container the service is bound to")
	checkNoErr(viper.BindPFlag("log.level", flags.Lookup("log-level")))
	checkNoErr(viper.BindPFlag("service_id", flags.Lookup("service")))
	checkNoErr(viper.BindPFlag("swift.container", flags.Lookup("container")))

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(lsCmd, getCmd, putCmd, cpCmd, rmCmd)
	RootCmd.AddCommand(mkContainerCmd, rmContainerCmd)
	RootCmd.AddCommand(configCmd)
}

// Execute runs the command given on the command line.
func Execute() error {
	return RootCmd.ExecuteContext(context.Background())
}

type runE func(cmd *cobra.Command, args []string) error

func compose(fns ...runE) runE {
	return func(cmd *cobra.Command, args []string) error {
		for _, fn := range fns {
			if err := fn(cmd, args); err != nil {
				return err
			}
		}
		return nil
	}
}

func prepareServices(cmd *cobra.Command, args []string) error {
	return config.SetupServices(cmd.Context())
}

func prepareConfigStore(cmd *cobra.Command, args []string) error {
	return config.SetupConfigStore(cmd.Context())
}

// splitPath splits container/path in its two parts. Without a container in
// the argument, the bound container is used.
func splitPath(arg string) (string, string, error) {
	arg = strings.TrimPrefix(arg, "/")
	if arg == "" {
		if base.Config.Container == "" {
			return "", "", fmt.Errorf("no container given, and the service is not bound to a container")
		}
		return base.Config.Container, "", nil
	}
	parts := strings.SplitN(arg, "/", 2)
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}

// splitBlobPath is like splitPath, but requires a blob name.
func splitBlobPath(arg string) (string, string, error) {
	container, name, err := splitPath(arg)
	if err != nil {
		return "", "", err
	}
	if name == "" || strings.HasSuffix(name, "/") {
		return "", "", fmt.Errorf("%q is not a blob, it should be <container>/<blob>", arg)
	}
	return container, name, nil
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
