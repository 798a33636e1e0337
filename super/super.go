// Package super reads and writes the superblock, which fully describes
// region placement on the image. Nothing else hardcodes region
// addresses.
package super

import (
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/txdisk"
)

// SUPERBLK is the only fixed address on the image.
const SUPERBLK common.Bnum = 0

// Super is immutable after format. All fields are 32-bit on disk.
type Super struct {
	InodeBitmapAddr common.Bnum
	InodeBitmapLen  uint64
	DataBitmapAddr  common.Bnum
	DataBitmapLen   uint64
	InodeRegionAddr common.Bnum
	InodeRegionLen  uint64
	DataRegionAddr  common.Bnum
	NumInodes       uint64
	NumData         uint64
}

func (sb *Super) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt32(uint32(sb.InodeBitmapAddr))
	enc.PutInt32(uint32(sb.InodeBitmapLen))
	enc.PutInt32(uint32(sb.DataBitmapAddr))
	enc.PutInt32(uint32(sb.DataBitmapLen))
	enc.PutInt32(uint32(sb.InodeRegionAddr))
	enc.PutInt32(uint32(sb.InodeRegionLen))
	enc.PutInt32(uint32(sb.DataRegionAddr))
	enc.PutInt32(uint32(sb.NumInodes))
	enc.PutInt32(uint32(sb.NumData))
	return enc.Finish()
}

func Decode(blk disk.Block) *Super {
	dec := marshal.NewDec(blk)
	sb := new(Super)
	sb.InodeBitmapAddr = common.Bnum(dec.GetInt32())
	sb.InodeBitmapLen = uint64(dec.GetInt32())
	sb.DataBitmapAddr = common.Bnum(dec.GetInt32())
	sb.DataBitmapLen = uint64(dec.GetInt32())
	sb.InodeRegionAddr = common.Bnum(dec.GetInt32())
	sb.InodeRegionLen = uint64(dec.GetInt32())
	sb.DataRegionAddr = common.Bnum(dec.GetInt32())
	sb.NumInodes = uint64(dec.GetInt32())
	sb.NumData = uint64(dec.GetInt32())
	return sb
}

func ReadSuper(td *txdisk.Disk) *Super {
	return Decode(td.Read(SUPERBLK))
}

func (sb *Super) ValidInum(inum common.Inum) bool {
	return uint64(inum) < sb.NumInodes
}

// InodeAddr locates inode inum inside the inode region.
func (sb *Super) InodeAddr(inum common.Inum) (common.Bnum, uint64) {
	blk := sb.InodeRegionAddr + common.Bnum(uint64(inum)/common.INODEBLK)
	off := (uint64(inum) % common.INODEBLK) * common.INODESZ
	return blk, off
}

// DataBnum maps data-bitmap bit k to its block number.
func (sb *Super) DataBnum(bit uint64) common.Bnum {
	return sb.DataRegionAddr + common.Bnum(bit)
}

// DataBit maps a data-region block number back to its bitmap bit.
func (sb *Super) DataBit(bn common.Bnum) uint64 {
	return uint64(bn - sb.DataRegionAddr)
}

func (sb *Super) ValidDataBnum(bn common.Bnum) bool {
	return bn >= sb.DataRegionAddr && uint64(bn) < uint64(sb.DataRegionAddr)+sb.NumData
}
