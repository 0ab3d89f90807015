package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"appfs/appfs"
)

var generateCmd = &cobra.Command{
	Use:                   "generate SIZE-BYTES OUT-PATH",
	Short:                 "Allocate and format a new AppFS partition image",
	Long:                  `Allocates a zero-file AppFS partition of the given size and writes it to out-path.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		size, err := strconv.Atoi(args[0])
		if err != nil || size <= 0 {
			fmt.Println("invalid size:", args[0])
			os.Exit(1)
		}

		partition, diags, err := appfs.New(size)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		logDiagnostics(diags)

		if err := os.WriteFile(args[1], partition.Raw(), 0o644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Printf("formatted %s partition at %s\n", humanize.Bytes(uint64(size)), args[1])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
