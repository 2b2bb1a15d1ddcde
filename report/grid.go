package report

// This file contains the ASCII outcome grid: offsets down the side,
// widths across the top, one rune per visited point.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bsmt/cwfriend/model"
)

// Legend names the grid runes.
const Legend = ". normal   m mute   o odd   ! successful"

func outcomeRune(o model.Outcome) rune {
	switch o {
	case model.OutcomeMute:
		return 'm'
	case model.OutcomeOdd:
		return 'o'
	case model.OutcomeSuccessful:
		return '!'
	default:
		return '.'
	}
}

// Grid renders records as an offset-by-width map in visitation order.
// Cells never visited (a sweep interrupted mid-row) stay blank.
func Grid(records []model.TrialRecord) string {
	if len(records) == 0 {
		return ""
	}

	var offsets, widths []float64
	offsetRow := make(map[float64]int)
	widthCol := make(map[float64]int)
	for _, rec := range records {
		if _, ok := offsetRow[rec.Offset]; !ok {
			offsetRow[rec.Offset] = len(offsets)
			offsets = append(offsets, rec.Offset)
		}
		if _, ok := widthCol[rec.Width]; !ok {
			widthCol[rec.Width] = len(widths)
			widths = append(widths, rec.Width)
		}
	}

	cells := make([][]rune, len(offsets))
	for i := range cells {
		row := make([]rune, len(widths))
		for j := range row {
			row[j] = ' '
		}
		cells[i] = row
	}
	for _, rec := range records {
		cells[offsetRow[rec.Offset]][widthCol[rec.Width]] = outcomeRune(rec.Outcome)
	}

	offsetLabels := make([]string, len(offsets))
	labelW := 0
	for i, v := range offsets {
		offsetLabels[i] = FormatSeconds(v)
		if len(offsetLabels[i]) > labelW {
			labelW = len(offsetLabels[i])
		}
	}

	widthLabels := make([]string, len(widths))
	colW := 2
	for j, v := range widths {
		widthLabels[j] = FormatSeconds(v)
		if len(widthLabels[j])+1 > colW {
			colW = len(widthLabels[j]) + 1
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s", labelW, "")
	for _, label := range widthLabels {
		fmt.Fprintf(&b, "%*s", colW, label)
	}
	b.WriteByte('\n')

	for i, row := range cells {
		fmt.Fprintf(&b, "%*s", labelW, offsetLabels[i])
		for _, c := range row {
			fmt.Fprintf(&b, "%*c", colW, c)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// FormatSeconds renders a duration in seconds with an engineering
// suffix, four significant digits. Units stay plain ASCII so grid
// columns line up.
func FormatSeconds(v float64) string {
	abs := math.Abs(v)
	switch {
	case v == 0:
		return "0s"
	case abs >= 1:
		return trimFloat(v) + "s"
	case abs >= 1e-3:
		return trimFloat(v*1e3) + "ms"
	case abs >= 1e-6:
		return trimFloat(v*1e6) + "us"
	case abs >= 1e-9:
		return trimFloat(v*1e9) + "ns"
	default:
		return trimFloat(v*1e12) + "ps"
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
