package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ufslab/ufsd/bitmap"
)

var bitsCmd = &cobra.Command{
	Use:   "bits",
	Short: "Print the superblock region addresses and the raw bitmaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := openFs()
		if err != nil {
			return err
		}
		sb := fsys.Super()
		fmt.Println("Super")
		fmt.Printf("inode_region_addr %d\n", sb.InodeRegionAddr)
		fmt.Printf("data_region_addr %d\n", sb.DataRegionAddr)
		fmt.Println()

		ibm, dbm := fsys.Bitmaps()
		fmt.Println("Inode bitmap")
		printBitmap(ibm)
		fmt.Println()
		fmt.Println("Data bitmap")
		printBitmap(dbm)
		return nil
	},
}

func printBitmap(bm bitmap.Bitmap) {
	for _, b := range bm {
		fmt.Printf("%d ", b)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(bitsCmd)
}
