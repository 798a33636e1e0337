// Package inode defines the fixed-size on-disk inode record.
package inode

import (
	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"
	"github.com/tchajed/marshal"

	"github.com/ufslab/ufsd/common"
)

// Inode is a 128-byte record: kind, byte size, and 30 direct block
// pointers. For directories Size counts the valid entry bytes. An
// all-zero record is a free slot; the inode bitmap is authoritative.
type Inode struct {
	Kind   uint32
	Size   uint64
	Direct [common.NDIRECT]common.Bnum
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(ip.Kind)
	enc.PutInt32(uint32(ip.Size))
	for _, bn := range ip.Direct {
		enc.PutInt32(uint32(bn))
	}
	return enc.Finish()
}

func Decode(d []byte) *Inode {
	dec := marshal.NewDec(d)
	ip := new(Inode)
	ip.Kind = dec.GetInt32()
	ip.Size = uint64(dec.GetInt32())
	for i := range ip.Direct {
		ip.Direct[i] = common.Bnum(dec.GetInt32())
	}
	return ip
}

func (ip *Inode) IsDir() bool {
	return ip.Kind == common.KindDir
}

func (ip *Inode) IsFile() bool {
	return ip.Kind == common.KindFile
}

// NBlocks is the number of occupied entries in Direct.
func (ip *Inode) NBlocks() uint64 {
	return util.RoundUp(ip.Size, disk.BlockSize)
}
