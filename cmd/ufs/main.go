// Command ufs operates on a UFS disk image: format it, inspect it, and
// serve it over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/mit-pdos/go-journal/util"
	"github.com/spf13/cobra"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/fs"
	"github.com/ufslab/ufsd/txdisk"
)

var (
	diskPath string
	debug    uint64
)

var rootCmd = &cobra.Command{
	Use:   "ufs",
	Short: "UNIX-style file system in a disk image, served over HTTP",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.Debug = debug
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&diskPath, "disk", "", "path to the disk image")
	rootCmd.PersistentFlags().Uint64Var(&debug, "debug", 0, "debug level (higher is more verbose)")
}

// openImage opens an existing image at whatever size it has on disk.
func openImage() (disk.Disk, error) {
	if diskPath == "" {
		return nil, fmt.Errorf("--disk is required")
	}
	fi, err := os.Stat(diskPath)
	if err != nil {
		return nil, err
	}
	d, err := disk.NewFileDisk(diskPath, uint64(fi.Size())/disk.BlockSize)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openFs() (*fs.FileSys, error) {
	d, err := openImage()
	if err != nil {
		return nil, err
	}
	return fs.New(txdisk.New(d)), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
