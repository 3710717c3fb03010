package ui

import (
	"github.com/micro-nova/btplayer/internal/display"
	"github.com/micro-nova/btplayer/internal/playback"
)

// Rows are text tops in pixels for the 7x13 font.
const (
	rowTitle    = 0
	rowDivider  = 14
	rowInfo     = 17
	rowProgress = 33
	rowTime     = 39
	rowFooter   = 51

	progressHeight = 4
	iconSize       = 8
)

func drawProgress(s Surface, pos, dur uint32) {
	s.Rect(0, rowProgress, display.Width, progressHeight, display.On)
	if dur == 0 {
		return
	}
	inner := display.Width - 2
	fill := int(uint64(min(pos, dur)) * uint64(inner) / uint64(dur))
	s.FillRect(1, rowProgress+1, fill, progressHeight-2, display.On)
}

func drawHints(s Surface) {
	s.Text(0, rowFooter, "<<", display.On)
	mid := ">"
	s.Text((display.Width-s.TextWidth(mid))/2, rowFooter, mid, display.On)
	s.Text(display.Width-s.TextWidth(">>"), rowFooter, ">>", display.On)
}

// drawIcon draws an 8x8 state glyph with its top-left at (x, y).
func drawIcon(s Surface, x, y int, st playback.State) {
	switch st {
	case playback.Playing:
		for i := 0; i < 4; i++ {
			s.FillRect(x+i*2, y+i, 2, iconSize-2*i, display.On)
		}
	case playback.Paused:
		s.FillRect(x+1, y, 2, iconSize, display.On)
		s.FillRect(x+5, y, 2, iconSize, display.On)
	case playback.Loading:
		for i := 0; i < 3; i++ {
			s.FillRect(x+i*3, y+iconSize-2, 2, 2, display.On)
		}
	case playback.Error:
		s.FillRect(x+3, y, 2, 5, display.On)
		s.FillRect(x+3, y+6, 2, 2, display.On)
	default:
		s.FillRect(x+1, y+1, iconSize-2, iconSize-2, display.On)
	}
}

// drawError covers the middle of the screen with an inverted banner.
func drawError(s Surface, msg string) {
	const top, h = rowInfo - 1, 2*13 + 4
	s.FillRect(0, top, display.Width, h, display.On)
	s.Text(2, top+2, "ERROR", display.Off)
	s.Text(2, top+15, fit(s, msg, display.Width-4), display.Off)
}
