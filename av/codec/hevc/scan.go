// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hevc

// Pos is a position inside a block scan.
type Pos struct {
	X, Y uint8
}

// Scan types (scanIdx).
const (
	ScanDiag       = 0
	ScanHorizontal = 1
	ScanVertical   = 2
)

// scanOrder[log2BlkSize][scanIdx], log2BlkSize in [0, 3]
var scanOrder [4][3][]Pos

func init() {
	for log2 := 0; log2 < 4; log2++ {
		size := 1 << uint(log2)
		scanOrder[log2][ScanDiag] = diagScan(size)

		hor := make([]Pos, 0, size*size)
		ver := make([]Pos, 0, size*size)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				hor = append(hor, Pos{uint8(x), uint8(y)})
				ver = append(ver, Pos{uint8(y), uint8(x)})
			}
		}
		scanOrder[log2][ScanHorizontal] = hor
		scanOrder[log2][ScanVertical] = ver
	}
}

// up-right diagonal scan, 6.5.3
func diagScan(size int) []Pos {
	scan := make([]Pos, 0, size*size)
	x, y := 0, 0
	for len(scan) < size*size {
		for y >= 0 {
			if x < size && y < size {
				scan = append(scan, Pos{uint8(x), uint8(y)})
			}
			y--
			x++
		}
		y = x
		x = 0
	}
	return scan
}

// ScanOrder returns the scan of a (1<<log2BlkSize) square block.
func ScanOrder(log2BlkSize, scanIdx int) []Pos {
	return scanOrder[log2BlkSize][scanIdx]
}
