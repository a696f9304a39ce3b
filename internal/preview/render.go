package preview

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

// Fit returns the largest cell grid (cols × rows) that shows an image of
// size sz inside maxCols × maxRows. Each cell holds two vertically stacked
// pixels, which keeps pixels roughly square on common terminal fonts.
func Fit(sz image.Point, maxCols, maxRows int) (cols, rows int) {
	if sz.X <= 0 || sz.Y <= 0 || maxCols <= 0 || maxRows <= 0 {
		return 0, 0
	}
	cols = maxCols
	rows = (sz.Y*cols/sz.X + 1) / 2
	if rows > maxRows {
		rows = maxRows
		cols = sz.X * rows * 2 / sz.Y
	}
	return max(1, cols), max(1, rows)
}

// Render draws img as cols × rows terminal cells using upper half blocks:
// the foreground colours the top pixel, the background the bottom one.
func Render(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < rows*2; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < cols; x++ {
			top, bottom := dst.RGBAAt(x, y), dst.RGBAAt(x, y+1)
			cell := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", top.R, top.G, top.B))).
				Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", bottom.R, bottom.G, bottom.B)))
			sb.WriteString(cell.Render(halfBlock))
		}
	}
	return sb.String()
}
