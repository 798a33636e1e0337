// Package layout moves the bitmaps and the inode table between disk
// and memory as whole regions. Writes are always whole-region so the
// allocator state on disk is internally consistent; partial-region
// writes are not exposed.
package layout

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/bitmap"
	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/inode"
	"github.com/ufslab/ufsd/super"
	"github.com/ufslab/ufsd/txdisk"
)

func readRegion(td *txdisk.Disk, start common.Bnum, nblks uint64) []byte {
	buf := make([]byte, nblks*disk.BlockSize)
	for i := uint64(0); i < nblks; i++ {
		copy(buf[i*disk.BlockSize:], td.Read(start+common.Bnum(i)))
	}
	return buf
}

func writeRegion(td *txdisk.Disk, start common.Bnum, buf []byte) {
	nblks := uint64(len(buf)) / disk.BlockSize
	for i := uint64(0); i < nblks; i++ {
		td.Write(start+common.Bnum(i), disk.Block(buf[i*disk.BlockSize : (i+1)*disk.BlockSize]))
	}
}

func ReadInodeBitmap(td *txdisk.Disk, sb *super.Super) bitmap.Bitmap {
	return bitmap.Bitmap(readRegion(td, sb.InodeBitmapAddr, sb.InodeBitmapLen))
}

func WriteInodeBitmap(td *txdisk.Disk, sb *super.Super, bm bitmap.Bitmap) {
	writeRegion(td, sb.InodeBitmapAddr, bm)
}

func ReadDataBitmap(td *txdisk.Disk, sb *super.Super) bitmap.Bitmap {
	return bitmap.Bitmap(readRegion(td, sb.DataBitmapAddr, sb.DataBitmapLen))
}

func WriteDataBitmap(td *txdisk.Disk, sb *super.Super, bm bitmap.Bitmap) {
	writeRegion(td, sb.DataBitmapAddr, bm)
}

func ReadInodes(td *txdisk.Disk, sb *super.Super) []inode.Inode {
	buf := readRegion(td, sb.InodeRegionAddr, sb.InodeRegionLen)
	inodes := make([]inode.Inode, sb.NumInodes)
	for i := uint64(0); i < sb.NumInodes; i++ {
		inodes[i] = *inode.Decode(buf[i*common.INODESZ : (i+1)*common.INODESZ])
	}
	return inodes
}

func WriteInodes(td *txdisk.Disk, sb *super.Super, inodes []inode.Inode) {
	buf := make([]byte, sb.InodeRegionLen*disk.BlockSize)
	for i := range inodes {
		copy(buf[uint64(i)*common.INODESZ:], inodes[i].Encode())
	}
	writeRegion(td, sb.InodeRegionAddr, buf)
}
