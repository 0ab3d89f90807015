package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"appfs/appfs"
)

var extractOutputDir string
var extractVerbose bool

var extractCmd = &cobra.Command{
	Use:                   "extract IMAGE",
	Short:                 "Extract every file from an AppFS partition image",
	Long:                  `Mounts an AppFS image and writes every DATA-named file it finds to the output directory.`,
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		imagePath := args[0]

		image, err := os.ReadFile(imagePath)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		partition, diags, err := appfs.Open(image)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		logDiagnostics(diags)

		entries, extractDiags, err := partition.ExtractAll()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		logDiagnostics(extractDiags)

		if err := os.MkdirAll(extractOutputDir, 0o755); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		for _, e := range entries {
			fmt.Printf(" - %s %s 0x%x (%s)\n", e.Name, e.Title, e.Version, humanize.Bytes(uint64(e.Size)))
			if extractVerbose {
				fmt.Printf("    %d bytes written\n", len(e.Data))
			}

			out := filepath.Join(extractOutputDir, e.Name)
			if err := os.WriteFile(out, e.Data, 0o644); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", "output", `Directory to write extracted files into`)
	extractCmd.Flags().BoolVar(&extractVerbose, "verbose", false, `Print the number of bytes written for each extracted file`)
	rootCmd.AddCommand(extractCmd)
}
