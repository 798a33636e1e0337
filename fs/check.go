package fs

import (
	"fmt"

	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/dir"
	"github.com/ufslab/ufsd/layout"
)

// Check walks the whole image and reports invariant violations: live
// inodes must be well-typed with in-range, marked, singly-owned direct
// blocks; directories must have entry-multiple sizes and correct "."
// and ".." entries; dead inode slots must be zeroed.
func (fsys *FileSys) Check() []string {
	var probs []string
	badf := func(format string, args ...interface{}) {
		probs = append(probs, fmt.Sprintf(format, args...))
	}

	ibm := layout.ReadInodeBitmap(fsys.td, fsys.sb)
	dbm := layout.ReadDataBitmap(fsys.td, fsys.sb)
	inodes := layout.ReadInodes(fsys.td, fsys.sb)

	owner := make(map[common.Bnum]common.Inum)
	for i := uint64(0); i < fsys.sb.NumInodes; i++ {
		ip := &inodes[i]
		if !ibm.IsSet(i) {
			if ip.Kind != common.KindFree || ip.Size != 0 ||
				ip.Direct != [common.NDIRECT]common.Bnum{} {
				badf("inode %d: free but record not zeroed", i)
			}
			continue
		}
		if !ip.IsFile() && !ip.IsDir() {
			badf("inode %d: live with kind %d", i, ip.Kind)
			continue
		}
		if ip.Size > common.MAXFILESZ {
			badf("inode %d: size %d exceeds max", i, ip.Size)
		}
		for b := uint64(0); b < common.NDIRECT; b++ {
			bn := ip.Direct[b]
			if bn == common.NULLBNUM {
				continue
			}
			if !fsys.sb.ValidDataBnum(bn) {
				badf("inode %d: direct[%d]=%d outside data region", i, b, bn)
				continue
			}
			if !dbm.IsSet(fsys.sb.DataBit(bn)) {
				badf("inode %d: direct[%d]=%d not marked in data bitmap", i, b, bn)
			}
			if prev, ok := owner[bn]; ok {
				badf("block %d: owned by inodes %d and %d", bn, prev, i)
			}
			owner[bn] = common.Inum(i)
		}
		if ip.IsDir() {
			fsys.checkDir(common.Inum(i), badf)
		}
	}
	return probs
}

func (fsys *FileSys) checkDir(inum common.Inum, badf func(string, ...interface{})) {
	ip, _ := fsys.Stat(inum)
	if ip.Size%common.DIRENTSZ != 0 {
		badf("dir %d: size %d not a multiple of entry size", inum, ip.Size)
		return
	}
	if ip.Size < 2*common.DIRENTSZ {
		badf("dir %d: missing . and .. entries", inum)
		return
	}
	names := make(map[string]bool)
	nblks := ip.NBlocks()
	for i := uint64(0); i < nblks; i++ {
		blk := fsys.td.Read(ip.Direct[i])
		for _, de := range dir.Ents(blk, ip.Size, i) {
			if names[de.Name] {
				badf("dir %d: duplicate entry %q", inum, de.Name)
			}
			names[de.Name] = true
		}
	}
	self, err := fsys.Lookup(inum, ".")
	if err != nil || self != inum {
		badf("dir %d: bad . entry", inum)
	}
	parent, err := fsys.Lookup(inum, "..")
	if err != nil {
		badf("dir %d: missing .. entry", inum)
	} else if parent == inum && inum != common.ROOTINUM {
		badf("dir %d: is its own parent", inum)
	}
}
