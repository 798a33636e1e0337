// Package dir defines the 32-byte directory entry and the packed-array
// accounting for directory data blocks.
package dir

import (
	"github.com/tchajed/goose/machine"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/common"
)

// Ent binds a name to an inode number. On disk: u32 inum followed by a
// NUL-terminated name in NAMEMAX bytes.
type Ent struct {
	Inum common.Inum
	Name string
}

func IllegalName(name string) bool {
	return name == "." || name == ".."
}

// ValidName requires room for the terminating NUL.
func ValidName(name string) bool {
	return len(name) > 0 && uint64(len(name)) < common.NAMEMAX
}

// EntriesInBlock is the number of valid entries in block index idx of a
// directory with the given size: full for every block except a partial
// tail. Readers rely on entries being packed at the block prefix.
func EntriesInBlock(size uint64, idx uint64) uint64 {
	nblks := (size + disk.BlockSize - 1) / disk.BlockSize
	if idx+1 == nblks && size%disk.BlockSize != 0 {
		return (size % disk.BlockSize) / common.DIRENTSZ
	}
	return common.ENTBLK
}

// PutEnt overwrites entry slot of blk in place.
func PutEnt(blk disk.Block, slot uint64, ent Ent) {
	off := slot * common.DIRENTSZ
	for i := uint64(0); i < common.DIRENTSZ; i++ {
		blk[off+i] = 0
	}
	machine.UInt32Put(blk[off : off+4], uint32(ent.Inum))
	copy(blk[off+4 : off+4+common.NAMEMAX-1], ent.Name)
}

func GetEnt(blk disk.Block, slot uint64) Ent {
	off := slot * common.DIRENTSZ
	inum := common.Inum(machine.UInt32Get(blk[off : off+4]))
	name := blk[off+4 : off+4+common.NAMEMAX]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	return Ent{Inum: inum, Name: string(name[:n])}
}

// Ents returns the valid entries of block index idx.
func Ents(blk disk.Block, size uint64, idx uint64) []Ent {
	n := EntriesInBlock(size, idx)
	ents := make([]Ent, 0, n)
	for j := uint64(0); j < n; j++ {
		ents = append(ents, GetEnt(blk, j))
	}
	return ents
}
