// Package fs implements the file-system engine: path-element
// operations over an image described by its superblock. Every
// operation either performs its full mutation or returns an error with
// the device (and any in-transaction buffer) untouched; all error
// checks run before the first write.
package fs

import (
	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/bitmap"
	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/dir"
	"github.com/ufslab/ufsd/inode"
	"github.com/ufslab/ufsd/layout"
	"github.com/ufslab/ufsd/super"
	"github.com/ufslab/ufsd/txdisk"
)

type FileSys struct {
	td *txdisk.Disk
	sb *super.Super
}

func New(td *txdisk.Disk) *FileSys {
	return &FileSys{td: td, sb: super.ReadSuper(td)}
}

func (fsys *FileSys) Super() *super.Super {
	return fsys.sb
}

func (fsys *FileSys) Disk() *txdisk.Disk {
	return fsys.td
}

// Stat loads the inode record for inum. It does not consult the inode
// bitmap; liveness is the caller's problem (or Lookup's).
func (fsys *FileSys) Stat(inum common.Inum) (*inode.Inode, error) {
	if !fsys.sb.ValidInum(inum) {
		return nil, common.ErrInvalidInode
	}
	blk, off := fsys.sb.InodeAddr(inum)
	b := fsys.td.Read(blk)
	return inode.Decode(b[off : off+common.INODESZ]), nil
}

// Lookup scans parent for an exact-match name and returns its inode
// number. A bad parent range and a non-directory parent both report
// ErrInvalidInode. "." and ".." are real entries and are found here
// like any other name.
func (fsys *FileSys) Lookup(parent common.Inum, name string) (common.Inum, error) {
	dip, err := fsys.Stat(parent)
	if err != nil {
		return 0, common.ErrInvalidInode
	}
	if !dip.IsDir() {
		return 0, common.ErrInvalidInode
	}
	nblks := dip.NBlocks()
	for i := uint64(0); i < nblks; i++ {
		blk := fsys.td.Read(dip.Direct[i])
		n := dir.EntriesInBlock(dip.Size, i)
		for j := uint64(0); j < n; j++ {
			de := dir.GetEnt(blk, j)
			if de.Name == name {
				util.DPrintf(5, "fs: lookup %d %q -> %d\n", parent, name, de.Inum)
				return de.Inum, nil
			}
		}
	}
	return 0, common.ErrNotFound
}

// Read returns min(size, inode.size) bytes starting at offset 0. It
// works for directories too; their bytes are packed entry records.
func (fsys *FileSys) Read(inum common.Inum, size uint64) ([]byte, error) {
	if size > common.MAXFILESZ {
		return nil, common.ErrInvalidSize
	}
	ip, err := fsys.Stat(inum)
	if err != nil {
		return nil, err
	}
	count := util.Min(size, ip.Size)
	data := make([]byte, 0, count)
	for off := uint64(0); off < count; {
		i := off / disk.BlockSize
		boff := off % disk.BlockSize
		n := util.Min(count-off, disk.BlockSize-boff)
		blk := fsys.td.Read(ip.Direct[i])
		data = append(data, blk[boff : boff+n]...)
		off += n
	}
	util.DPrintf(10, "fs: read %d -> %d bytes\n", inum, len(data))
	return data, nil
}

// Write replaces the entire contents of a regular file. The free-block
// check runs against the data bitmap as-is, before the file's current
// blocks are released; a full rewrite on a nearly full disk can fail
// even when it would fit after the release.
func (fsys *FileSys) Write(inum common.Inum, data []byte) (uint64, error) {
	size := uint64(len(data))
	if !fsys.sb.ValidInum(inum) {
		return 0, common.ErrInvalidInode
	}
	inodes := layout.ReadInodes(fsys.td, fsys.sb)
	ip := &inodes[inum]
	if !ip.IsFile() {
		return 0, common.ErrInvalidType
	}
	if size > common.MAXFILESZ {
		return 0, common.ErrInvalidSize
	}

	newBlks := util.RoundUp(size, disk.BlockSize)
	dbm := layout.ReadDataBitmap(fsys.td, fsys.sb)
	if dbm.FreeCount(fsys.sb.NumData) < newBlks {
		return 0, common.ErrNotEnoughSpace
	}

	for i := uint64(0); i < ip.NBlocks(); i++ {
		dbm.Clear(fsys.sb.DataBit(ip.Direct[i]))
		ip.Direct[i] = common.NULLBNUM
	}

	for i := uint64(0); i < newBlks; i++ {
		bit, _ := dbm.FirstFree(fsys.sb.NumData)
		dbm.Set(bit)
		ip.Direct[i] = fsys.sb.DataBnum(bit)
		blk := make(disk.Block, disk.BlockSize)
		copy(blk, data[i*disk.BlockSize : util.Min(size, (i+1)*disk.BlockSize)])
		fsys.td.Write(ip.Direct[i], blk)
	}
	ip.Size = size

	layout.WriteInodes(fsys.td, fsys.sb, inodes)
	layout.WriteDataBitmap(fsys.td, fsys.sb, dbm)
	util.DPrintf(1, "fs: write %d size %d blks %d\n", inum, size, newBlks)
	return size, nil
}

type stagedBlock struct {
	bn  common.Bnum
	blk disk.Block
}

// Create allocates an inode of the given kind and links it into parent
// under name. Everything is staged in memory first; the device is only
// written once all allocations are known to succeed.
func (fsys *FileSys) Create(parent common.Inum, kind uint32, name string) (common.Inum, error) {
	if !fsys.sb.ValidInum(parent) {
		return 0, common.ErrInvalidInode
	}
	if !dir.ValidName(name) {
		return 0, common.ErrInvalidName
	}
	if kind != common.KindFile && kind != common.KindDir {
		return 0, common.ErrInvalidType
	}
	inodes := layout.ReadInodes(fsys.td, fsys.sb)
	dip := &inodes[parent]
	if !dip.IsDir() {
		return 0, common.ErrInvalidInode
	}
	// Create never overwrites, whatever the existing entry's kind.
	if _, err := fsys.Lookup(parent, name); err == nil {
		return 0, common.ErrInvalidName
	}

	ibm := layout.ReadInodeBitmap(fsys.td, fsys.sb)
	newInum64, ok := ibm.FirstFree(fsys.sb.NumInodes)
	if !ok {
		return 0, common.ErrNotEnoughSpace
	}
	newInum := common.Inum(newInum64)
	dbm := layout.ReadDataBitmap(fsys.td, fsys.sb)

	var staged []stagedBlock
	ent := dir.Ent{Inum: newInum, Name: name}
	if dip.Size%disk.BlockSize != 0 {
		// tail block has a free slot
		i := dip.Size / disk.BlockSize
		blk := fsys.td.Read(dip.Direct[i])
		dir.PutEnt(blk, (dip.Size%disk.BlockSize)/common.DIRENTSZ, ent)
		staged = append(staged, stagedBlock{dip.Direct[i], blk})
	} else {
		bit, ok := dbm.FirstFree(fsys.sb.NumData)
		if !ok {
			return 0, common.ErrNotEnoughSpace
		}
		slot := common.NDIRECT
		for i := uint64(0); i < common.NDIRECT; i++ {
			if dip.Direct[i] == common.NULLBNUM {
				slot = i
				break
			}
		}
		if slot == common.NDIRECT {
			return 0, common.ErrNotEnoughSpace
		}
		dbm.Set(bit)
		dip.Direct[slot] = fsys.sb.DataBnum(bit)
		blk := make(disk.Block, disk.BlockSize)
		dir.PutEnt(blk, 0, ent)
		staged = append(staged, stagedBlock{dip.Direct[slot], blk})
	}

	newIp := inode.Inode{Kind: kind}
	if kind == common.KindDir {
		bit, ok := dbm.FirstFree(fsys.sb.NumData)
		if !ok {
			return 0, common.ErrNotEnoughSpace
		}
		dbm.Set(bit)
		newIp.Direct[0] = fsys.sb.DataBnum(bit)
		newIp.Size = 2 * common.DIRENTSZ
		blk := make(disk.Block, disk.BlockSize)
		dir.PutEnt(blk, 0, dir.Ent{Inum: newInum, Name: "."})
		dir.PutEnt(blk, 1, dir.Ent{Inum: parent, Name: ".."})
		staged = append(staged, stagedBlock{newIp.Direct[0], blk})
	}

	ibm.Set(newInum64)
	dip.Size += common.DIRENTSZ
	inodes[newInum] = newIp

	for _, s := range staged {
		fsys.td.Write(s.bn, s.blk)
	}
	layout.WriteInodes(fsys.td, fsys.sb, inodes)
	layout.WriteInodeBitmap(fsys.td, fsys.sb, ibm)
	layout.WriteDataBitmap(fsys.td, fsys.sb, dbm)
	util.DPrintf(1, "fs: create %d kind %d %q -> %d\n", parent, kind, name, newInum)
	return newInum, nil
}

// Unlink removes name from parent. A missing name is success; "." and
// ".." are never removable; a directory with entries beyond its first
// two cannot be unlinked. The removed entry's slot is filled by
// swapping in the last valid entry of its block, keeping entries
// packed at the block prefix.
func (fsys *FileSys) Unlink(parent common.Inum, name string) error {
	if dir.IllegalName(name) {
		return common.ErrUnlinkNotAllowed
	}
	if !fsys.sb.ValidInum(parent) {
		return common.ErrInvalidInode
	}
	if !dir.ValidName(name) {
		return common.ErrInvalidName
	}
	inodes := layout.ReadInodes(fsys.td, fsys.sb)
	dip := &inodes[parent]
	if !dip.IsDir() {
		return common.ErrInvalidInode
	}

	var bi, slot uint64
	var victim common.Inum
	found := false
	nblks := dip.NBlocks()
	for i := uint64(0); i < nblks && !found; i++ {
		blk := fsys.td.Read(dip.Direct[i])
		n := dir.EntriesInBlock(dip.Size, i)
		for j := uint64(0); j < n; j++ {
			if dir.GetEnt(blk, j).Name == name {
				bi, slot = i, j
				victim = dir.GetEnt(blk, j).Inum
				found = true
				break
			}
		}
	}
	if !found {
		return nil
	}

	vip := &inodes[victim]
	if vip.IsDir() && vip.Size > 2*common.DIRENTSZ {
		return common.ErrDirNotEmpty
	}

	blk := fsys.td.Read(dip.Direct[bi])
	n := dir.EntriesInBlock(dip.Size, bi)
	dir.PutEnt(blk, slot, dir.GetEnt(blk, n-1))
	dir.PutEnt(blk, n-1, dir.Ent{})
	fsys.td.Write(dip.Direct[bi], blk)
	dip.Size -= common.DIRENTSZ

	dbm := layout.ReadDataBitmap(fsys.td, fsys.sb)
	zero := make(disk.Block, disk.BlockSize)
	for i := uint64(0); i < common.NDIRECT; i++ {
		if vip.Direct[i] != common.NULLBNUM {
			dbm.Clear(fsys.sb.DataBit(vip.Direct[i]))
			fsys.td.Write(vip.Direct[i], zero)
			vip.Direct[i] = common.NULLBNUM
		}
	}
	ibm := layout.ReadInodeBitmap(fsys.td, fsys.sb)
	ibm.Clear(uint64(victim))
	inodes[victim] = inode.Inode{}

	layout.WriteInodes(fsys.td, fsys.sb, inodes)
	layout.WriteInodeBitmap(fsys.td, fsys.sb, ibm)
	layout.WriteDataBitmap(fsys.td, fsys.sb, dbm)
	util.DPrintf(1, "fs: unlink %d %q (inode %d)\n", parent, name, victim)
	return nil
}

// Bitmaps returns copies of the allocator state, for diagnostics.
func (fsys *FileSys) Bitmaps() (bitmap.Bitmap, bitmap.Bitmap) {
	return layout.ReadInodeBitmap(fsys.td, fsys.sb),
		layout.ReadDataBitmap(fsys.td, fsys.sb)
}
