package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/svcconfig"
	"github.com/howeyc/gopass"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const maskedSecret = "**********"

var (
	showSecretsFlag bool
	askPasswordFlag bool
	askAPIKeyFlag   bool
	publicPathFlag  []string
	configInput     svcconfig.Config
)

var configCmd = &cobra.Command{
	Use:   "config <command>",
	Short: `Manages the configuration of the services`,
}

var configGetCmd = &cobra.Command{
	Use:     "get [service]",
	Short:   `Prints the configuration of a service`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: prepareConfigStore,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := serviceIDFromArgs(args)
		if err != nil {
			return err
		}
		cfg, err := base.ConfigStore.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !showSecretsFlag {
			if cfg.Password != "" {
				cfg.Password = maskedSecret
			}
			if cfg.APIKey != "" {
				cfg.APIKey = maskedSecret
			}
		}
		return printJSON(cmd, cfg)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [service]",
	Short: `Creates or updates the configuration of a service`,
	Long: `Creates or updates the configuration of a service. Only the given fields
are changed. The secrets can be typed on the terminal with --ask-password and
--ask-api-key rather than given on the command line.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: compose(prepareConfigStore, askSecrets),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := serviceIDFromArgs(args)
		if err != nil {
			return err
		}
		input := configInput
		if cmd.Flags().Changed("public-path") {
			input.PublicPath = publicPathFlag
		}

		merged, err := base.ConfigStore.Get(ctx, id)
		if err != nil {
			return err
		}
		merged.Merge(&input)
		if err = svcconfig.Validate(merged); err != nil {
			return fmt.Errorf("Invalid configuration: %w", err)
		}
		return base.ConfigStore.Set(ctx, id, &input)
	},
}

var configRmCmd = &cobra.Command{
	Use:     "rm [service]",
	Short:   `Removes the configuration of a service`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: prepareConfigStore,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := serviceIDFromArgs(args)
		if err != nil {
			return err
		}
		return base.ConfigStore.Remove(cmd.Context(), id)
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: `Prints the fields of a configuration`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, svcconfig.Schema())
	},
}

func askSecrets(cmd *cobra.Command, args []string) error {
	if askPasswordFlag {
		pass, err := gopass.GetPasswdPrompt("Password: ", false, os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		configInput.Password = string(pass)
	}
	if askAPIKeyFlag {
		key, err := gopass.GetPasswdPrompt("API key: ", false, os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		configInput.APIKey = strings.TrimSpace(string(key))
	}
	return nil
}

func serviceIDFromArgs(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if id := viper.GetString("service_id"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no service given, use --service or give it as argument")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	configGetCmd.Flags().BoolVar(&showSecretsFlag, "show-secrets", false, "print the password and API key in clear")

	flags := configSetCmd.Flags()
	flags.StringVar(&configInput.Username, "username", "", "username of the object store account")
	flags.StringVar(&configInput.Password, "password", "", "password of the account")
	flags.StringVar(&configInput.APIKey, "api-key", "", "Rackspace API key of the account")
	flags.StringVar(&configInput.TenantName, "tenant", "", "tenant (project) name")
	flags.StringVar(&configInput.URL, "url", "", "identity endpoint")
	flags.StringVar(&configInput.Region, "region", "", "region of the object store")
	flags.StringVar(&configInput.StorageType, "storage-type", "", "storage type, only "+svcconfig.StorageType+" is supported")
	flags.StringVar(&configInput.Container, "container-name", "", "container the service is bound to")
	flags.StringSliceVar(&publicPathFlag, "public-path", nil, "public paths of the service")
	flags.BoolVar(&askPasswordFlag, "ask-password", false, "type the password on the terminal")
	flags.BoolVar(&askAPIKeyFlag, "ask-api-key", false, "type the API key on the terminal")

	configCmd.AddCommand(configGetCmd, configSetCmd, configRmCmd, configSchemaCmd)
}
