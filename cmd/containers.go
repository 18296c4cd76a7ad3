package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/spf13/cobra"
)

var metadataFlag []string

var mkContainerCmd = &cobra.Command{
	Use:     "mkcontainer <container>",
	Short:   `Creates a container`,
	Args:    cobra.ExactArgs(1),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		metadata := make(map[string]string, len(metadataFlag))
		for _, meta := range metadataFlag {
			parts := strings.SplitN(meta, "=", 2)
			if len(parts) != 2 || parts[0] == "" {
				return fmt.Errorf("invalid metadata %q, it should be key=value", meta)
			}
			metadata[parts[0]] = parts[1]
		}
		_, err := base.Storage.CreateContainer(cmd.Context(), args[0], metadata)
		return err
	},
}

var rmContainerCmd = &cobra.Command{
	Use:   "rmcontainer <container>",
	Short: `Removes a container`,
	Long: `Removes a container. With --force, the blobs of the container are removed
first, else the container must be empty.`,
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		container := args[0]

		if forceFlag && !yesFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: You are going to remove container %s and all its blobs. This action is irreversible.\nPlease enter the container name to confirm: ", container)
			response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return err
			}
			if strings.TrimSpace(response) != container {
				return fmt.Errorf("container names are not identical")
			}
		}

		return base.Storage.DeleteContainer(cmd.Context(), container, forceFlag)
	},
}

func init() {
	mkContainerCmd.Flags().StringSliceVarP(&metadataFlag, "meta", "m", nil, "metadata of the container, as key=value")
	rmContainerCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "remove the blobs of the container")
	rmContainerCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "do not ask for a confirmation")
}
