package engine

const (
	GridSize  = 5
	CellCount = GridSize * GridSize
)

// gridLines holds the cell indices of every row, column and diagonal.
var gridLines = buildGridLines()

func buildGridLines() [][GridSize]int {
	lines := make([][GridSize]int, 0, 2*GridSize+2)

	for r := 0; r < GridSize; r++ {
		var row [GridSize]int
		for c := 0; c < GridSize; c++ {
			row[c] = r*GridSize + c
		}
		lines = append(lines, row)
	}

	for c := 0; c < GridSize; c++ {
		var col [GridSize]int
		for r := 0; r < GridSize; r++ {
			col[r] = r*GridSize + c
		}
		lines = append(lines, col)
	}

	var diag, anti [GridSize]int
	for i := 0; i < GridSize; i++ {
		diag[i] = i*GridSize + i
		anti[i] = i*GridSize + (GridSize - 1 - i)
	}
	return append(lines, diag, anti)
}

// CountLines returns how many rows, columns and diagonals are fully completed.
func CountLines(completed [CellCount]bool) int {
	lines := 0
	for _, line := range gridLines {
		full := true
		for _, idx := range line {
			if !completed[idx] {
				full = false
				break
			}
		}
		if full {
			lines++
		}
	}
	return lines
}

func validCell(idx int) bool {
	return idx >= 0 && idx < CellCount
}
