package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ufslab/ufsd/common"
)

var catCmd = &cobra.Command{
	Use:   "cat <inode>",
	Short: "Print an inode's block numbers and raw bytes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid inode number: %s", args[0])
		}
		inum := common.Inum(n)
		fsys, err := openFs()
		if err != nil {
			return err
		}
		ip, err := fsys.Stat(inum)
		if err != nil {
			return fmt.Errorf("invalid inode number: %d", inum)
		}

		fmt.Println("File blocks")
		for i := uint64(0); i < ip.NBlocks(); i++ {
			fmt.Println(ip.Direct[i])
		}
		fmt.Println()

		fmt.Println("File data")
		data, err := fsys.Read(inum, ip.Size)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
