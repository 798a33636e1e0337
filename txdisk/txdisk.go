// Package txdisk presents a block device with a request-scoped write
// buffer. Outside a transaction writes go straight to the underlying
// disk; inside one they are buffered and flushed atomically by Commit
// or dropped by Rollback. Transactions do not nest.
package txdisk

import (
	"sort"

	"github.com/mit-pdos/go-journal/util"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/common"
)

type Disk struct {
	d       disk.Disk
	pending map[common.Bnum]disk.Block
	inTxn   bool
}

func New(d disk.Disk) *Disk {
	return &Disk{
		d:       d,
		pending: make(map[common.Bnum]disk.Block),
	}
}

func clone(blk disk.Block) disk.Block {
	b := make(disk.Block, len(blk))
	copy(b, blk)
	return b
}

// Read returns the caller's own buffered write for bn if there is one.
func (td *Disk) Read(bn common.Bnum) disk.Block {
	if td.inTxn {
		if blk, ok := td.pending[bn]; ok {
			return clone(blk)
		}
	}
	return td.d.Read(bn)
}

func (td *Disk) Write(bn common.Bnum, blk disk.Block) {
	if uint64(len(blk)) != disk.BlockSize {
		panic("txdisk: Write with non-block-sized buffer")
	}
	if td.inTxn {
		td.pending[bn] = clone(blk)
		return
	}
	td.d.Write(bn, blk)
}

func (td *Disk) Begin() {
	if td.inTxn {
		panic("txdisk: Begin inside transaction")
	}
	td.inTxn = true
	util.DPrintf(5, "txdisk: begin\n")
}

// Commit flushes buffered blocks in block order and barriers the disk.
func (td *Disk) Commit() {
	if !td.inTxn {
		panic("txdisk: Commit outside transaction")
	}
	bns := make([]common.Bnum, 0, len(td.pending))
	for bn := range td.pending {
		bns = append(bns, bn)
	}
	sort.Slice(bns, func(i, j int) bool { return bns[i] < bns[j] })
	for _, bn := range bns {
		td.d.Write(bn, td.pending[bn])
	}
	td.d.Barrier()
	util.DPrintf(5, "txdisk: commit %d blocks\n", len(bns))
	td.pending = make(map[common.Bnum]disk.Block)
	td.inTxn = false
}

func (td *Disk) Rollback() {
	if !td.inTxn {
		panic("txdisk: Rollback outside transaction")
	}
	util.DPrintf(5, "txdisk: rollback %d blocks\n", len(td.pending))
	td.pending = make(map[common.Bnum]disk.Block)
	td.inTxn = false
}

func (td *Disk) InTxn() bool {
	return td.inTxn
}

func (td *Disk) Size() uint64 {
	return td.d.Size()
}

func (td *Disk) Barrier() {
	td.d.Barrier()
}

func (td *Disk) Close() {
	td.d.Close()
}
