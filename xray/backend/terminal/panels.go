package terminal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-xray/xray/addr"
	"github.com/valerio/go-xray/xray/backend"
	"github.com/valerio/go-xray/xray/backend/terminal/render"
	"github.com/valerio/go-xray/xray/debug"
	"github.com/valerio/go-xray/xray/screen"
)

var (
	borderStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle     = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	textStyle      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	registerStyle  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	listingStyle   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	predictedStyle = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	dataStyle      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	breakStyle     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	changedStyle   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	selectedStyle  = tcell.StyleDefault.Reverse(true)
	screenStyle    = tcell.StyleDefault.Foreground(tcell.ColorLime)
)

// box is a rectangular area of the terminal.
type box struct {
	x, y, w, h int
}

func (t *Backend) render(view *backend.View) {
	termWidth, termHeight := t.screen.Size()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		t.screen.Clear()
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		return
	}

	t.screen.Clear()

	// Left: screen on top, memory below. Right: registers, listing,
	// breakpoints and regions side by side, logs at the bottom.
	dividerX := screenPanelWidth
	rightX := dividerX + 1
	rightW := termWidth - rightX
	bodyH := termHeight - 1

	screenBox := box{0, 1, screenPanelWidth, addr.ScreenRows}
	memoryTop := screenBox.y + screenBox.h + 1
	memoryBox := box{0, memoryTop + 1, screenPanelWidth, bodyH - memoryTop - 1}

	regBox := box{rightX, 1, rightW, registerHeight}
	listingTop := regBox.y + regBox.h
	listingBox := box{rightX, listingTop + 1, rightW/2 - 1, 16}
	sideBox := box{rightX + rightW/2, listingTop + 1, rightW - rightW/2, 16}
	logTop := listingBox.y + listingBox.h
	logBox := box{rightX, logTop + 1, rightW, bodyH - logTop - 1}

	t.drawVLine(dividerX, 0, bodyH)
	t.drawHLine(0, memoryTop, dividerX)
	t.drawHLine(rightX, listingTop, rightW)
	t.drawHLine(rightX, logTop, rightW)
	t.drawVLine(sideBox.x-1, listingTop+1, listingBox.h)

	t.drawText(1, 0, dividerX-1, " Screen ", titleStyle)
	t.drawText(1, memoryTop, dividerX-1, fmt.Sprintf(" Memory @ 0x%04X [%s] ", view.Selected, view.Session.TypeAt(view.Selected)), titleStyle)
	t.drawText(rightX+1, 0, rightW-1, " Registers ", titleStyle)
	t.drawText(rightX+1, listingTop, rightW-1, " Disassembly ", titleStyle)
	t.drawText(sideBox.x+1, listingTop, sideBox.w-1, " Breakpoints / Regions ", titleStyle)
	t.drawText(rightX+1, logTop, rightW-1, fmt.Sprintf(" Logs [%s] (-/+ filter) ", render.LevelTag(t.logLevel)), titleStyle)

	t.drawScreen(screenBox, view)
	t.drawMemory(memoryBox, view)
	t.drawRegisters(regBox, view)
	t.drawListing(listingBox, view)
	t.drawSide(sideBox, view)
	t.drawLogs(logBox)
	t.drawStatus(termWidth, termHeight-1, view)
}

func (t *Backend) drawScreen(b box, view *backend.View) {
	for y, row := range screen.Rows(view.Session.Memory()) {
		t.drawText(b.x+1, b.y+y, b.w-1, row, screenStyle)
	}
}

func (t *Backend) drawRegisters(b box, view *backend.View) {
	s := view.Session
	var lines []string

	if ctx, ok := s.Context(); ok {
		state := "STOPPED"
		if ctx.Running {
			state = "RUNNING"
		}
		lines = append(lines, fmt.Sprintf("%s  Model %d  %s", ctx.SystemName, ctx.Model, state))
	} else {
		lines = append(lines, "No context")
	}

	regs, ok := s.Registers()
	if !ok {
		lines = append(lines, "No registers")
	} else {
		lines = append(lines,
			fmt.Sprintf("AF: %04X  BC: %04X  DE: %04X  HL: %04X", regs.AF, regs.BC, regs.DE, regs.HL),
			fmt.Sprintf("AF' %04X  BC' %04X  DE' %04X  HL' %04X", regs.AFPrime, regs.BCPrime, regs.DEPrime, regs.HLPrime),
			fmt.Sprintf("IX: %04X  IY: %04X  PC: %04X  SP: %04X", regs.IX, regs.IY, regs.PC, regs.SP),
			fmt.Sprintf("I: %02X  R: %02X  IM: %d  IFF1: %d  IFF2: %d", regs.I, regs.R(), regs.InterruptMode, regs.IFF1, regs.IFF2),
			fmt.Sprintf("Flags: %s", regs.Flags()),
			fmt.Sprintf("T-states: %d  Clock: %.2f MHz", regs.TStates, regs.ClockSpeed),
			fmt.Sprintf("Prev PC: %04X  Next: %s", s.PrevPC(), formatAddresses(s.PredictedNext())),
		)
	}

	for i, line := range lines {
		if i >= b.h {
			break
		}
		t.drawText(b.x, b.y+i, b.w, line, registerStyle)
	}
}

func formatAddresses(addrs []uint16) string {
	if len(addrs) == 0 {
		return "-"
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = fmt.Sprintf("%04X", a)
	}
	return strings.Join(parts, " ")
}

func (t *Backend) drawListing(b box, view *backend.View) {
	for i, line := range view.Session.Listing(b.h) {
		style := listingStyle
		switch {
		case line.IsCurrent:
			style = currentStyle
		case line.HasBreakpoint:
			style = breakStyle
		case line.IsPredicted:
			style = predictedStyle
		case line.IsData:
			style = dataStyle
		}

		text := line.Text()
		if line.Label != "" {
			text += "  ; " + line.Label
		}
		t.drawText(b.x, b.y+i, b.w, text, style)
	}
}

func (t *Backend) drawSide(b box, view *backend.View) {
	y := b.y
	bps := view.Session.Breakpoints()
	if len(bps) == 0 {
		t.drawText(b.x, y, b.w, "No breakpoints", dataStyle)
		y++
	}
	for _, bp := range bps {
		if y >= b.y+b.h/2 {
			break
		}
		t.drawText(b.x, y, b.w, fmt.Sprintf("#%-3d %04X  %s", bp.ID, bp.Address, bp.Type), breakStyle)
		y++
	}

	y = max(y, b.y+b.h/2)
	if len(view.SelectedRegions) == 0 {
		t.drawText(b.x, y, b.w, "No known region", dataStyle)
		return
	}
	for _, r := range view.SelectedRegions {
		if y >= b.y+b.h {
			break
		}
		t.drawText(b.x, y, b.w, fmt.Sprintf("%04X-%04X %s", r.Start, r.End, r.Description), textStyle)
		y++
	}
}

// drawMemory shows a hex dump of the rows around the selected address.
// Bytes changed by the last update are highlighted.
func (t *Backend) drawMemory(b box, view *backend.View) {
	if b.h <= 0 {
		return
	}

	mem := view.Session.Memory()
	pc := view.Session.PC()
	firstRow := MemoryWindow(view.Selected, b.h)

	for row := 0; row < b.h; row++ {
		base := firstRow + row*bytesPerRow
		if base >= addr.Space {
			break
		}
		y := b.y + row
		t.drawText(b.x, y, 6, fmt.Sprintf("%04X:", base), textStyle)

		for col := 0; col < bytesPerRow; col++ {
			a := uint16(base + col)
			style := textStyle
			switch {
			case a == view.Selected:
				style = selectedStyle
			case a == pc:
				style = currentStyle
			case mem.IsChanged(int(a)):
				style = changedStyle
			}
			v := mem.At(a)
			t.drawText(b.x+6+col*3, y, 2, fmt.Sprintf("%02X", v), style)
			t.screen.SetContent(b.x+6+bytesPerRow*3+col, y, screen.Glyph(v), nil, style)
		}
	}
}

// MemoryWindow returns the address of the first row shown when rows rows
// are visible, keeping the selected row roughly centred.
func MemoryWindow(selected uint16, rows int) int {
	const lastRow = addr.Space - bytesPerRow
	selRow := int(selected) &^ (bytesPerRow - 1)
	first := selRow - (rows/2)*bytesPerRow
	if maxFirst := lastRow - (rows-1)*bytesPerRow; first > maxFirst {
		first = maxFirst
	}
	return max(first, 0)
}

func (t *Backend) drawLogs(b box) {
	if b.h <= 0 {
		return
	}

	for i, entry := range t.logBuffer.GetRecent(b.h, t.logLevel) {
		style := registerStyle
		switch entry.Level {
		case slog.LevelDebug:
			style = dataStyle
		case slog.LevelWarn:
			style = titleStyle
		case slog.LevelError:
			style = changedStyle
		}
		text := render.FormatLogEntry(entry)
		if len(text) > b.w && b.w > 3 {
			text = text[:b.w-3] + "..."
		}
		t.drawText(b.x, b.y+i, b.w, text, style)
	}
}

func (t *Backend) drawStatus(width, y int, view *backend.View) {
	state := view.Session.ConnState()
	style := breakStyle
	if state == debug.Connected {
		style = listingStyle
	}

	status := fmt.Sprintf(" %s %s ", strings.ToUpper(state.String()), view.URL)
	t.drawText(0, y, width, status, style)

	mode := "video"
	if view.FullMemory {
		mode = "full"
	}
	capture := ""
	if view.KeyboardCapture {
		capture = " | KEYBOARD CAPTURE (Tab to release)"
	}
	help := fmt.Sprintf("| mem:%s | 1=step 2=cont 3=stop 4/$=reset m=mem r=refresh b/w/o=break x=del [ ]=poke q=quit%s", mode, capture)
	t.drawText(len(status), y, width-len(status), help, borderStyle)
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	i := 0
	for _, ch := range text {
		if i >= width {
			break
		}
		t.screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}

func (t *Backend) drawHLine(x, y, width int) {
	for i := 0; i < width; i++ {
		t.screen.SetContent(x+i, y, '─', nil, borderStyle)
	}
}

func (t *Backend) drawVLine(x, y, height int) {
	for i := 0; i < height; i++ {
		t.screen.SetContent(x, y+i, '│', nil, borderStyle)
	}
}
