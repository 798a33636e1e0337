// Package mkfs formats a disk image: superblock, bitmaps, inode table,
// and a root directory at inode 0. The engine tolerates this initial
// state but never creates it.
package mkfs

import (
	"fmt"

	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/ufslab/ufsd/bitmap"
	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/dir"
	"github.com/ufslab/ufsd/inode"
	"github.com/ufslab/ufsd/layout"
	"github.com/ufslab/ufsd/super"
	"github.com/ufslab/ufsd/txdisk"
)

const nbitblock uint64 = disk.BlockSize * 8

// Geometry places the regions back to back after the superblock:
// inode bitmap, data bitmap, inode table, data.
func Geometry(numInodes uint64, numData uint64) *super.Super {
	ibl := util.RoundUp(numInodes, nbitblock)
	dbl := util.RoundUp(numData, nbitblock)
	irl := util.RoundUp(numInodes, common.INODEBLK)
	return &super.Super{
		InodeBitmapAddr: 1,
		InodeBitmapLen:  ibl,
		DataBitmapAddr:  1 + ibl,
		DataBitmapLen:   dbl,
		InodeRegionAddr: 1 + ibl + dbl,
		InodeRegionLen:  irl,
		DataRegionAddr:  1 + ibl + dbl + irl,
		NumInodes:       numInodes,
		NumData:         numData,
	}
}

// NumBlocks is the image size, in blocks, for the given capacities.
func NumBlocks(numInodes uint64, numData uint64) uint64 {
	sb := Geometry(numInodes, numData)
	return sb.DataRegionAddr + sb.NumData
}

func Format(d disk.Disk, numInodes uint64, numData uint64) (*super.Super, error) {
	if numInodes == 0 || numData == 0 {
		return nil, fmt.Errorf("mkfs: need at least one inode and one data block")
	}
	sb := Geometry(numInodes, numData)
	total := sb.DataRegionAddr + numData
	if d.Size() < total {
		return nil, fmt.Errorf("mkfs: image has %d blocks, geometry needs %d", d.Size(), total)
	}

	td := txdisk.New(d)
	td.Write(super.SUPERBLK, sb.Encode())

	ibm := bitmap.New(sb.InodeBitmapLen * disk.BlockSize)
	ibm.Set(uint64(common.ROOTINUM))
	dbm := bitmap.New(sb.DataBitmapLen * disk.BlockSize)
	dbm.Set(0)

	inodes := make([]inode.Inode, numInodes)
	root := inode.Inode{Kind: common.KindDir, Size: 2 * common.DIRENTSZ}
	root.Direct[0] = sb.DataRegionAddr
	inodes[common.ROOTINUM] = root

	rootblk := make(disk.Block, disk.BlockSize)
	dir.PutEnt(rootblk, 0, dir.Ent{Inum: common.ROOTINUM, Name: "."})
	dir.PutEnt(rootblk, 1, dir.Ent{Inum: common.ROOTINUM, Name: ".."})
	td.Write(sb.DataRegionAddr, rootblk)

	zero := make(disk.Block, disk.BlockSize)
	for i := uint64(1); i < numData; i++ {
		td.Write(sb.DataBnum(i), zero)
	}

	layout.WriteInodes(td, sb, inodes)
	layout.WriteInodeBitmap(td, sb, ibm)
	layout.WriteDataBitmap(td, sb, dbm)
	td.Barrier()
	util.DPrintf(1, "mkfs: %d inodes, %d data blocks, %d total\n",
		numInodes, numData, total)
	return sb, nil
}

// FormatFile sizes the image file to exactly total*BlockSize bytes and
// formats it.
func FormatFile(path string, numInodes uint64, numData uint64) (disk.Disk, *super.Super, error) {
	total := NumBlocks(numInodes, numData)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.Ftruncate(fd, int64(total*disk.BlockSize)); err != nil {
		unix.Close(fd)
		return nil, nil, err
	}
	unix.Close(fd)

	d, err := disk.NewFileDisk(path, total)
	if err != nil {
		return nil, nil, err
	}
	sb, err := Format(d, numInodes, numData)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, sb, nil
}
