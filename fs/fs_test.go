package fs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/tchajed/goose/machine/disk"

	"github.com/ufslab/ufsd/bitmap"
	"github.com/ufslab/ufsd/common"
	"github.com/ufslab/ufsd/mkfs"
	"github.com/ufslab/ufsd/txdisk"
)

const (
	testInodes uint64 = 256
	testData   uint64 = 256
)

type FsSuite struct {
	suite.Suite
	td   *txdisk.Disk
	fsys *FileSys
}

func mkTestFs(t *suite.Suite, numInodes uint64, numData uint64) (*txdisk.Disk, *FileSys) {
	d := disk.NewMemDisk(mkfs.NumBlocks(numInodes, numData))
	_, err := mkfs.Format(d, numInodes, numData)
	t.Require().NoError(err)
	td := txdisk.New(d)
	return td, New(td)
}

func (s *FsSuite) SetupTest() {
	s.td, s.fsys = mkTestFs(&s.Suite, testInodes, testData)
}

func (s *FsSuite) create(parent common.Inum, kind uint32, name string) common.Inum {
	inum, err := s.fsys.Create(parent, kind, name)
	s.Require().NoError(err)
	return inum
}

func (s *FsSuite) bitmaps() (bitmap.Bitmap, bitmap.Bitmap) {
	return s.fsys.Bitmaps()
}

func (s *FsSuite) checkClean() {
	s.Empty(s.fsys.Check())
}

func (s *FsSuite) TestRootDotEntries() {
	self, err := s.fsys.Lookup(common.ROOTINUM, ".")
	s.NoError(err)
	s.Equal(common.ROOTINUM, self)
	parent, err := s.fsys.Lookup(common.ROOTINUM, "..")
	s.NoError(err)
	s.Equal(common.ROOTINUM, parent)
	s.checkClean()
}

func (s *FsSuite) TestLookupErrors() {
	_, err := s.fsys.Lookup(common.Inum(testInodes), "x")
	s.ErrorIs(err, common.ErrInvalidInode)

	f := s.create(common.ROOTINUM, common.KindFile, "f")
	_, err = s.fsys.Lookup(f, "x")
	s.ErrorIs(err, common.ErrInvalidInode)

	_, err = s.fsys.Lookup(common.ROOTINUM, "missing")
	s.ErrorIs(err, common.ErrNotFound)
}

func (s *FsSuite) TestCreateThenLookup() {
	inum := s.create(common.ROOTINUM, common.KindFile, "a.txt")
	got, err := s.fsys.Lookup(common.ROOTINUM, "a.txt")
	s.NoError(err)
	s.Equal(inum, got)

	ip, err := s.fsys.Stat(inum)
	s.NoError(err)
	s.True(ip.IsFile())
	s.Equal(uint64(0), ip.Size)
	s.checkClean()
}

func (s *FsSuite) TestCreateDirectory() {
	inum := s.create(common.ROOTINUM, common.KindDir, "sub")
	ip, err := s.fsys.Stat(inum)
	s.NoError(err)
	s.True(ip.IsDir())
	s.Equal(2*common.DIRENTSZ, ip.Size)

	self, err := s.fsys.Lookup(inum, ".")
	s.NoError(err)
	s.Equal(inum, self)
	up, err := s.fsys.Lookup(inum, "..")
	s.NoError(err)
	s.Equal(common.ROOTINUM, up)
	s.checkClean()
}

func (s *FsSuite) TestCreateDuplicateName() {
	s.create(common.ROOTINUM, common.KindFile, "a")
	_, err := s.fsys.Create(common.ROOTINUM, common.KindFile, "a")
	s.ErrorIs(err, common.ErrInvalidName)
	// not an overwrite even across kinds
	_, err = s.fsys.Create(common.ROOTINUM, common.KindDir, "a")
	s.ErrorIs(err, common.ErrInvalidName)
}

func (s *FsSuite) TestCreateArgErrors() {
	_, err := s.fsys.Create(common.Inum(testInodes), common.KindFile, "x")
	s.ErrorIs(err, common.ErrInvalidInode)

	f := s.create(common.ROOTINUM, common.KindFile, "f")
	_, err = s.fsys.Create(f, common.KindFile, "x")
	s.ErrorIs(err, common.ErrInvalidInode)

	_, err = s.fsys.Create(common.ROOTINUM, common.KindFile, "")
	s.ErrorIs(err, common.ErrInvalidName)

	long := make([]byte, common.NAMEMAX)
	for i := range long {
		long[i] = 'n'
	}
	_, err = s.fsys.Create(common.ROOTINUM, common.KindFile, string(long))
	s.ErrorIs(err, common.ErrInvalidName)

	_, err = s.fsys.Create(common.ROOTINUM, common.KindFree, "x")
	s.ErrorIs(err, common.ErrInvalidType)
}

func mkdata(sz uint64) []byte {
	data := make([]byte, sz)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func (s *FsSuite) TestWriteThenRead() {
	inum := s.create(common.ROOTINUM, common.KindFile, "f")
	data := []byte("hello")
	n, err := s.fsys.Write(inum, data)
	s.NoError(err)
	s.Equal(uint64(5), n)

	got, err := s.fsys.Read(inum, 5)
	s.NoError(err)
	s.Equal(data, got)

	// a short read and an over-long read both stop at the file size
	got, _ = s.fsys.Read(inum, 3)
	s.Equal([]byte("hel"), got)
	got, _ = s.fsys.Read(inum, 100)
	s.Equal(data, got)
	s.checkClean()
}

func (s *FsSuite) TestWriteMultiBlock() {
	inum := s.create(common.ROOTINUM, common.KindFile, "big")
	data := mkdata(2*disk.BlockSize + 100)
	n, err := s.fsys.Write(inum, data)
	s.NoError(err)
	s.Equal(uint64(len(data)), n)

	ip, _ := s.fsys.Stat(inum)
	s.Equal(uint64(3), ip.NBlocks())
	got, err := s.fsys.Read(inum, uint64(len(data)))
	s.NoError(err)
	s.Equal(data, got)
	s.checkClean()
}

func (s *FsSuite) TestOverwriteFreesBlocks() {
	inum := s.create(common.ROOTINUM, common.KindFile, "f")
	_, dbm := s.bitmaps()
	base := dbm.FreeCount(testData)

	_, err := s.fsys.Write(inum, mkdata(2*disk.BlockSize))
	s.NoError(err)
	_, dbm = s.bitmaps()
	s.Equal(base-2, dbm.FreeCount(testData))

	// shrink to one block; the second block must come back
	_, err = s.fsys.Write(inum, mkdata(10))
	s.NoError(err)
	_, dbm = s.bitmaps()
	s.Equal(base-1, dbm.FreeCount(testData))

	// rewrite at the same block count leaks nothing
	_, err = s.fsys.Write(inum, mkdata(disk.BlockSize))
	s.NoError(err)
	_, dbm = s.bitmaps()
	s.Equal(base-1, dbm.FreeCount(testData))
	s.checkClean()
}

func (s *FsSuite) TestWriteLowestFreeFirst() {
	a := s.create(common.ROOTINUM, common.KindFile, "a")
	b := s.create(common.ROOTINUM, common.KindFile, "b")
	_, err := s.fsys.Write(a, mkdata(10))
	s.NoError(err)
	_, err = s.fsys.Write(b, mkdata(10))
	s.NoError(err)

	aip, _ := s.fsys.Stat(a)
	first := aip.Direct[0]

	// freeing a's block and rewriting b moves b down into it
	s.NoError(s.fsys.Unlink(common.ROOTINUM, "a"))
	_, err = s.fsys.Write(b, mkdata(10))
	s.NoError(err)
	bip, _ := s.fsys.Stat(b)
	s.Equal(first, bip.Direct[0])
	s.checkClean()
}

func (s *FsSuite) TestWriteErrors() {
	inum := s.create(common.ROOTINUM, common.KindFile, "f")
	sub := s.create(common.ROOTINUM, common.KindDir, "d")

	_, err := s.fsys.Write(common.Inum(testInodes), []byte("x"))
	s.ErrorIs(err, common.ErrInvalidInode)

	_, err = s.fsys.Write(sub, []byte("x"))
	s.ErrorIs(err, common.ErrInvalidType)

	_, err = s.fsys.Write(inum, make([]byte, common.MAXFILESZ+1))
	s.ErrorIs(err, common.ErrInvalidSize)
}

func (s *FsSuite) TestWriteOutOfSpace() {
	// one data block total, and the root directory owns it
	_, fsys := mkTestFs(&s.Suite, 16, 1)
	inum, err := fsys.Create(common.ROOTINUM, common.KindFile, "f")
	s.NoError(err)

	ibmBefore, dbmBefore := fsys.Bitmaps()
	_, err = fsys.Write(inum, []byte("x"))
	s.ErrorIs(err, common.ErrNotEnoughSpace)

	ibm, dbm := fsys.Bitmaps()
	s.True(ibm.Equal(ibmBefore))
	s.True(dbm.Equal(dbmBefore))
	s.Empty(fsys.Check())
}

func (s *FsSuite) TestCreateDirOutOfSpace() {
	// a new directory needs a data block of its own
	_, fsys := mkTestFs(&s.Suite, 16, 1)
	_, err := fsys.Create(common.ROOTINUM, common.KindDir, "d")
	s.ErrorIs(err, common.ErrNotEnoughSpace)
	s.Empty(fsys.Check())
}

func (s *FsSuite) TestUnlinkRestoresState() {
	ibmBefore, dbmBefore := s.bitmaps()

	inum := s.create(common.ROOTINUM, common.KindFile, "tmp")
	_, err := s.fsys.Write(inum, mkdata(disk.BlockSize+1))
	s.NoError(err)
	s.NoError(s.fsys.Unlink(common.ROOTINUM, "tmp"))

	ibm, dbm := s.bitmaps()
	s.True(ibm.Equal(ibmBefore))
	s.True(dbm.Equal(dbmBefore))

	ip, err := s.fsys.Stat(inum)
	s.NoError(err)
	s.Equal(common.KindFree, ip.Kind)
	s.Equal(uint64(0), ip.Size)
	s.checkClean()
}

func (s *FsSuite) TestUnlinkMissingIsSuccess() {
	s.NoError(s.fsys.Unlink(common.ROOTINUM, "never-there"))
}

func (s *FsSuite) TestUnlinkDotDot() {
	s.ErrorIs(s.fsys.Unlink(common.ROOTINUM, "."), common.ErrUnlinkNotAllowed)
	s.ErrorIs(s.fsys.Unlink(common.ROOTINUM, ".."), common.ErrUnlinkNotAllowed)
}

func (s *FsSuite) TestUnlinkNonEmptyDir() {
	sub := s.create(common.ROOTINUM, common.KindDir, "a")
	s.create(sub, common.KindFile, "f")

	ibmBefore, dbmBefore := s.bitmaps()
	err := s.fsys.Unlink(common.ROOTINUM, "a")
	s.ErrorIs(err, common.ErrDirNotEmpty)

	// no mutation on failure
	ibm, dbm := s.bitmaps()
	s.True(ibm.Equal(ibmBefore))
	s.True(dbm.Equal(dbmBefore))
	got, err := s.fsys.Lookup(common.ROOTINUM, "a")
	s.NoError(err)
	s.Equal(sub, got)

	// emptying the directory unblocks it
	s.NoError(s.fsys.Unlink(sub, "f"))
	s.NoError(s.fsys.Unlink(common.ROOTINUM, "a"))
	_, err = s.fsys.Lookup(common.ROOTINUM, "a")
	s.ErrorIs(err, common.ErrNotFound)
	s.checkClean()
}

func (s *FsSuite) TestUnlinkSwapsLastEntry() {
	a := s.create(common.ROOTINUM, common.KindFile, "a")
	s.create(common.ROOTINUM, common.KindFile, "b")
	c := s.create(common.ROOTINUM, common.KindFile, "c")

	s.NoError(s.fsys.Unlink(common.ROOTINUM, "b"))

	ip, _ := s.fsys.Stat(common.ROOTINUM)
	s.Equal(4*common.DIRENTSZ, ip.Size)
	got, err := s.fsys.Lookup(common.ROOTINUM, "a")
	s.NoError(err)
	s.Equal(a, got)
	got, err = s.fsys.Lookup(common.ROOTINUM, "c")
	s.NoError(err)
	s.Equal(c, got)
	s.checkClean()
}

func (s *FsSuite) TestDirGrowsIntoSecondBlock() {
	// the root block holds ENTBLK entries; . and .. occupy two
	nfill := common.ENTBLK - 2
	for i := uint64(0); i < nfill; i++ {
		s.create(common.ROOTINUM, common.KindFile, fmt.Sprintf("f%03d", i))
	}
	ip, _ := s.fsys.Stat(common.ROOTINUM)
	s.Equal(disk.BlockSize, ip.Size)
	s.Equal(uint64(1), ip.NBlocks())

	spill := s.create(common.ROOTINUM, common.KindFile, "spill")
	ip, _ = s.fsys.Stat(common.ROOTINUM)
	s.Equal(disk.BlockSize+common.DIRENTSZ, ip.Size)
	s.Equal(uint64(2), ip.NBlocks())

	got, err := s.fsys.Lookup(common.ROOTINUM, "spill")
	s.NoError(err)
	s.Equal(spill, got)
	got, err = s.fsys.Lookup(common.ROOTINUM, "f000")
	s.NoError(err)
	s.NotEqual(common.Inum(0), got)
	s.checkClean()
}

func (s *FsSuite) TestStatIgnoresBitmap() {
	_, err := s.fsys.Stat(common.Inum(testInodes))
	s.ErrorIs(err, common.ErrInvalidInode)

	// a never-allocated inode reads as a zero record, not an error
	ip, err := s.fsys.Stat(common.Inum(testInodes - 1))
	s.NoError(err)
	s.Equal(common.KindFree, ip.Kind)
}

func (s *FsSuite) TestReadDirectoryBytes() {
	data, err := s.fsys.Read(common.ROOTINUM, 2*common.DIRENTSZ)
	s.NoError(err)
	s.Require().Equal(2*common.DIRENTSZ, uint64(len(data)))
}

func (s *FsSuite) TestRollbackUndoesCreate() {
	s.td.Begin()
	inum, err := s.fsys.Create(common.ROOTINUM, common.KindFile, "t")
	s.NoError(err)

	// the transaction reads its own buffered writes
	got, err := s.fsys.Lookup(common.ROOTINUM, "t")
	s.NoError(err)
	s.Equal(inum, got)

	s.td.Rollback()
	_, err = s.fsys.Lookup(common.ROOTINUM, "t")
	s.ErrorIs(err, common.ErrNotFound)
	s.checkClean()
}

func TestFs(t *testing.T) {
	suite.Run(t, new(FsSuite))
}
