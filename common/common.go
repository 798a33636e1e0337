// Package common holds the on-disk geometry shared by every layer and
// the engine's error set.
package common

import (
	"errors"

	"github.com/mit-pdos/go-journal/common"
	"github.com/tchajed/goose/machine/disk"
)

type Inum = common.Inum
type Bnum = common.Bnum

const (
	NULLBNUM Bnum = common.NULLBNUM

	// ROOTINUM is allocated by the formatter, never by the engine.
	ROOTINUM Inum = 0
)

const (
	INODESZ  uint64 = 128
	DIRENTSZ uint64 = 32
	NDIRECT  uint64 = 30

	// NAMEMAX counts the terminating NUL, so names are at most
	// NAMEMAX-1 bytes.
	NAMEMAX uint64 = 28

	INODEBLK uint64 = disk.BlockSize / INODESZ
	ENTBLK   uint64 = disk.BlockSize / DIRENTSZ

	MAXFILESZ uint64 = NDIRECT * disk.BlockSize
)

// Inode kinds. An all-zero inode record is a free slot.
const (
	KindFree uint32 = 0
	KindFile uint32 = 1
	KindDir  uint32 = 2
)

var (
	ErrInvalidInode     = errors.New("invalid inode")
	ErrInvalidSize      = errors.New("invalid size")
	ErrInvalidType      = errors.New("invalid type")
	ErrInvalidName      = errors.New("invalid name")
	ErrNotFound         = errors.New("not found")
	ErrNotEnoughSpace   = errors.New("not enough space")
	ErrDirNotEmpty      = errors.New("directory not empty")
	ErrUnlinkNotAllowed = errors.New("unlink not allowed")
)
