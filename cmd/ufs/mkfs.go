package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufslab/ufsd/mkfs"
)

var (
	mkfsInodes uint64
	mkfsData   uint64
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Format a disk image with an empty root directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if diskPath == "" {
			return fmt.Errorf("--disk is required")
		}
		d, sb, err := mkfs.FormatFile(diskPath, mkfsInodes, mkfsData)
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Printf("formatted %s: %d inodes, %d data blocks, %d blocks total\n",
			diskPath, sb.NumInodes, sb.NumData, uint64(sb.DataRegionAddr)+sb.NumData)
		return nil
	},
}

func init() {
	mkfsCmd.Flags().Uint64Var(&mkfsInodes, "inodes", 1024, "number of inodes")
	mkfsCmd.Flags().Uint64Var(&mkfsData, "data", 4096, "number of data blocks")
	rootCmd.AddCommand(mkfsCmd)
}
