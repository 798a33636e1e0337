// Package stats tracks operation counts and latencies.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rodaine/table"
)

type Op struct {
	count uint32
	nanos uint64
}

func (op *Op) Record(start time.Time) {
	atomic.AddUint32(&op.count, 1)
	atomic.AddUint64(&op.nanos, uint64(time.Since(start).Nanoseconds()))
}

func (op Op) MicrosPerOp() float64 {
	if op.count == 0 {
		return 0
	}
	return float64(op.nanos) / float64(op.count) / 1e3
}

func WriteTable(names []string, ops []Op, w io.Writer) {
	if len(names) != len(ops) {
		panic("mismatched names and ops lists")
	}
	tbl := table.New("op", "count", "us")
	var total Op
	for i, name := range names {
		op := Op{
			count: atomic.LoadUint32(&ops[i].count),
			nanos: atomic.LoadUint64(&ops[i].nanos),
		}
		total.count += op.count
		total.nanos += op.nanos
		tbl.AddRow(name, op.count, fmt.Sprintf("%0.1f us/op", op.MicrosPerOp()))
	}
	tbl.AddRow("total", total.count, fmt.Sprintf("%0.1f us", float64(total.nanos)/1e3))
	tbl.WithWriter(w)
	tbl.Print()
}

func FormatTable(names []string, ops []Op) string {
	buf := new(bytes.Buffer)
	WriteTable(names, ops, buf)
	return buf.String()
}
