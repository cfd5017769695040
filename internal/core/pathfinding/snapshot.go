package pathfinding

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/cespare/xxhash/v2"
)

var ErrNoSource = errors.New("pathfinding: no source grid")

// readLock takes the source's read lock when it has one.
func readLock(src Source) func() {
	if g, ok := src.(*Grid); ok {
		g.mu.RLock()
		return g.mu.RUnlock
	}
	return func() {}
}

// CopyGrid builds a private grid with the source's dimensions, topology,
// traversability and costs, then computes its adjacency.
func CopyGrid(src Source) (*Grid, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	dst, err := NewGrid(src.Width(), src.Height(), src.Topology())
	if err != nil {
		return nil, err
	}
	copyCells(dst, src)
	dst.RefreshNodes()
	return dst, nil
}

func copyCells(dst *Grid, src Source) {
	unlock := readLock(src)
	defer unlock()
	for y := 0; y < dst.height; y++ {
		for x := 0; x < dst.width; x++ {
			from := src.Cell(x, y)
			to := &dst.cells[y*dst.width+x]
			to.Traversable = from.Traversable
			to.Cost = from.Cost
		}
	}
}

// Fingerprint hashes everything a copy depends on: size, topology,
// traversability and cost of every cell.
func Fingerprint(src Source) uint64 {
	if src == nil {
		return 0
	}
	unlock := readLock(src)
	defer unlock()

	d := xxhash.New()
	var buf [9]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(src.Width()))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(src.Height()))
	_, _ = d.Write(buf[:8])
	_, _ = d.WriteString(src.Topology().Name())
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			c := src.Cell(x, y)
			buf[0] = 0
			if c.Traversable {
				buf[0] = 1
			}
			binary.LittleEndian.PutUint64(buf[1:9], math.Float64bits(c.Cost))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

// Snapshot keeps a private copy of a source grid and recopies it only when the
// source fingerprint changes.
type Snapshot struct {
	grid        *Grid
	fingerprint uint64
}

// Sync returns an up to date private grid and whether it was rebuilt.
// A rebuilt grid invalidates cells held by sessions searching the old copy.
func (s *Snapshot) Sync(src Source) (*Grid, bool, error) {
	if src == nil {
		return nil, false, ErrNoSource
	}
	fp := Fingerprint(src)
	if s.grid != nil && fp == s.fingerprint {
		return s.grid, false, nil
	}
	grid, err := CopyGrid(src)
	if err != nil {
		return nil, false, err
	}
	s.grid = grid
	s.fingerprint = fp
	return grid, true, nil
}

// Grid returns the last synced copy, nil before the first Sync.
func (s *Snapshot) Grid() *Grid { return s.grid }
