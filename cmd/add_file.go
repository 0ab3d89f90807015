package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"appfs/appfs"
)

var addFileCmd = &cobra.Command{
	Use:                   "add-file IMAGE PAYLOAD NAME TITLE VERSION",
	Short:                 "Add a file to an AppFS partition image",
	Long:                  `Mounts an existing AppFS image, creates a file from payload's contents, and writes the image back.`,
	Args:                  cobra.ExactArgs(5),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		imagePath, payloadPath, name, title, versionArg := args[0], args[1], args[2], args[3], args[4]

		version, err := strconv.ParseUint(versionArg, 10, 16)
		if err != nil {
			fmt.Println("invalid version:", versionArg)
			os.Exit(1)
		}

		image, err := os.ReadFile(imagePath)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		payload, err := os.ReadFile(payloadPath)
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

		if err := partition.CreateFile(name, title, uint16(version), payload); err != nil {
			if appfs.IsInsufficientSpace(err) {
				fmt.Println("not enough free space on", imagePath)
				os.Exit(2)
			}
			fmt.Println(err)
			os.Exit(1)
		}

		if err := os.WriteFile(imagePath, partition.Raw(), 0o644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Printf("added %s (%s) v%d to %s\n", name, title, version, imagePath)
	},
}

func init() {
	rootCmd.AddCommand(addFileCmd)
}
