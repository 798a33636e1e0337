package main

import (
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

var dfCmd = &cobra.Command{
	Use:   "df",
	Short: "Summarize inode and data-block usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := openFs()
		if err != nil {
			return err
		}
		sb := fsys.Super()
		ibm, dbm := fsys.Bitmaps()
		freeInodes := ibm.FreeCount(sb.NumInodes)
		freeData := dbm.FreeCount(sb.NumData)

		tbl := table.New("", "used", "free", "total")
		tbl.AddRow("inodes", sb.NumInodes-freeInodes, freeInodes, sb.NumInodes)
		tbl.AddRow("data blocks", sb.NumData-freeData, freeData, sb.NumData)
		tbl.Print()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dfCmd)
}
