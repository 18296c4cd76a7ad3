package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/stream"
	"github.com/cozy/cozy-cloudfiles/utils"
	"github.com/spf13/cobra"
)

var (
	recursiveFlag   bool
	outputFlag      string
	contentTypeFlag string
)

var lsCmd = &cobra.Command{
	Use:     "ls [container[/path]]",
	Short:   `Lists the containers, or the content of a folder`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if len(args) == 0 && base.Config.Container == "" {
			containers, err := base.Storage.ListContainers(ctx, true)
			if err != nil {
				return err
			}
			for _, c := range containers {
				fmt.Fprintf(out, "%s/\t%d objects\t%d bytes\n", c.Name, c.Count, c.Size)
			}
			return nil
		}

		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		container, path, err := splitPath(arg)
		if err != nil {
			return err
		}
		folder, err := base.Storage.GetFolder(ctx, container, path, true, true, recursiveFlag)
		if err != nil {
			return err
		}
		for _, f := range folder.Folders {
			fmt.Fprintf(out, "%s\n", f.Path)
		}
		for _, f := range folder.Files {
			fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", f.Path, f.ContentLength, f.ContentType, f.LastModified)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <container>/<blob>",
	Short: `Downloads a blob`,
	Long: `Downloads a blob, chunk by chunk, to the standard output or to a file.
When written to a file, the content type of the blob is kept in the
user.mime_type extended attribute of the file.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, name, err := splitBlobPath(args[0])
		if err != nil {
			return err
		}
		if outputFlag != "" && outputFlag != "-" {
			file, err := utils.AbsPath(outputFlag)
			if err != nil {
				return err
			}
			return base.Storage.GetBlobAsFile(cmd.Context(), container, name, file)
		}

		streamer, err := stream.New(base.Config.ChunkSize)
		if err != nil {
			return err
		}
		sink := stream.NewWriterSink(cmd.OutOrStdout())
		return streamer.Stream(cmd.Context(), base.Storage, sink, stream.Request{
			Container:   container,
			Blob:        name,
			Disposition: "attachment",
		})
	},
}

var putCmd = &cobra.Command{
	Use:   "put <file> <container>/<blob>",
	Short: `Uploads a local file as a blob`,
	Long: `Uploads a local file as a blob. Use - to read the standard input.
Without --content-type, the content type is read from the user.mime_type
extended attribute of the file, or guessed from its content.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, name, err := splitBlobPath(args[1])
		if err != nil {
			return err
		}
		if args[0] == "-" {
			return base.Storage.PutBlob(cmd.Context(), container, name, os.Stdin, contentTypeFlag)
		}
		file, err := utils.AbsPath(args[0])
		if err != nil {
			return err
		}
		return base.Storage.PutBlobFromFile(cmd.Context(), container, name, file, contentTypeFlag)
	},
}

var cpCmd = &cobra.Command{
	Use:     "cp <container>/<blob> <container>/<blob>",
	Short:   `Copies a blob`,
	Args:    cobra.ExactArgs(2),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		srcContainer, srcName, err := splitBlobPath(args[0])
		if err != nil {
			return err
		}
		container, name, err := splitBlobPath(args[1])
		if err != nil {
			return err
		}
		return base.Storage.CopyBlob(cmd.Context(), container, name, srcContainer, srcName)
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <container>/<blob>...",
	Short:   `Removes blobs`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: prepareServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, arg := range args {
			container, name, err := splitPath(arg)
			if err != nil {
				return err
			}
			if name == "" {
				return fmt.Errorf("%q is a container, use rmcontainer to remove it", arg)
			}
			if strings.HasSuffix(name, "/") && !recursiveFlag {
				return fmt.Errorf("%q is a folder, use --recursive to remove it", arg)
			}
			if err := removePath(cmd, container, name); err != nil {
				return err
			}
		}
		return nil
	},
}

// removePath removes a blob, or a folder and all its content.
func removePath(cmd *cobra.Command, container, name string) error {
	ctx := cmd.Context()
	if !strings.HasSuffix(name, "/") {
		return base.Storage.DeleteBlob(ctx, container, name)
	}
	blobs, err := base.Storage.ListBlobs(ctx, container, name, "")
	if err != nil {
		return err
	}
	for _, blob := range blobs {
		if err := base.Storage.DeleteBlob(ctx, container, blob.Name); err != nil {
			return err
		}
	}
	return base.Storage.DeleteBlob(ctx, container, name)
}

func init() {
	lsCmd.Flags().BoolVarP(&recursiveFlag, "recursive", "r", false, "list the whole tree")
	rmCmd.Flags().BoolVarP(&recursiveFlag, "recursive", "r", false, "remove the folders and their content")
	getCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "file where the blob is written")
	putCmd.Flags().StringVar(&contentTypeFlag, "content-type", "", "content type of the blob")
}
