package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/dir"
	"github.com/ufslab/ufsd/fs"
)

var lsInum uint64

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Recursively list directories, one inum\\tname line per entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := openFs()
		if err != nil {
			return err
		}
		return lsDir(fsys, common.Inum(lsInum), "")
	},
}

func lsDir(fsys *fs.FileSys, inum common.Inum, path string) error {
	ip, err := fsys.Stat(inum)
	if err != nil || !ip.IsDir() {
		return fmt.Errorf("inode %d is not a directory", inum)
	}
	fmt.Printf("Directory %s/\n", path)

	data, err := fsys.Read(inum, ip.Size)
	if err != nil {
		return err
	}
	var ents []dir.Ent
	for off := uint64(0); off+common.DIRENTSZ <= uint64(len(data)); off += common.DIRENTSZ {
		ents = append(ents, dir.GetEnt(data, off/common.DIRENTSZ))
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name < ents[j].Name })

	for _, e := range ents {
		fmt.Printf("%d\t%s\n", e.Inum, e.Name)
	}
	fmt.Println()

	for _, e := range ents {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		cip, err := fsys.Stat(e.Inum)
		if err != nil {
			continue
		}
		if cip.IsDir() {
			if err := lsDir(fsys, e.Inum, path+"/"+e.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	lsCmd.Flags().Uint64Var(&lsInum, "inode", 0, "directory inode to start from")
	rootCmd.AddCommand(lsCmd)
}
