package view

import (
	"fmt"
	"math"
	"sort"

	"github.com/gdamore/tcell/v2"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/sim"
)

var (
	styleDefault = tcell.StyleDefault
	styleOrbit   = tcell.StyleDefault.Foreground(tcell.ColorDimGray)
	styleSun     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleUser    = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleSystem  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleInput   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

var bodyColors = map[string]tcell.Color{
	"Mercury": tcell.ColorDarkGray,
	"Venus":   tcell.ColorKhaki,
	"Earth":   tcell.ColorDodgerBlue,
	"Mars":    tcell.ColorOrangeRed,
	"Jupiter": tcell.ColorSandyBrown,
	"Saturn":  tcell.ColorGoldenrod,
	"Uranus":  tcell.ColorLightCyan,
	"Neptune": tcell.ColorRoyalBlue,
}

// sprite is one sphere ready to be painted
type sprite struct {
	col, row float64 // centre in cells
	radius   float64 // in rows
	depth    float64
	glyph    rune
	style    tcell.Style
}

// toCell maps NDC to fractional cell coordinates in the scene viewport
func (v *View) toCell(ndcX, ndcY float64) (col, row float64) {
	sh := float64(v.sceneHeight())
	col = (ndcX + 1) / 2 * float64(v.width)
	row = (1 - ndcY) / 2 * sh
	return col, row
}

func (v *View) draw(st *sim.State) {
	v.screen.Clear()
	if v.width < 1 || v.height < 1 {
		v.screen.Show()
		return
	}

	if st.OrbitsVisible {
		v.drawOrbits(st)
	}
	v.drawBodies(st)
	v.drawStatus(st)
	if conv := v.panel.Current(); conv != nil {
		v.drawPanel(conv)
	}

	v.screen.Show()
}

func (v *View) drawOrbits(st *sim.State) {
	cam := v.cam.Camera
	sh := v.sceneHeight()
	for _, o := range st.Bodies {
		for _, p := range celestial.OrbitPath(o.Body.OrbitRadius, v.opts.OrbitPoints) {
			x, y, _, ok := cam.Project(p)
			if !ok {
				continue
			}
			col, row := v.toCell(x, y)
			c, r := int(col), int(row)
			if c >= 0 && c < v.width && r >= 0 && r < sh {
				v.screen.SetContent(c, r, '·', nil, styleOrbit)
			}
		}
	}
}

func (v *View) drawBodies(st *sim.State) {
	cam := v.cam.Camera
	sh := float64(v.sceneHeight())

	var sprites []sprite
	add := func(pos celestial.Vector3, radius float64, glyph rune, style tcell.Style) {
		x, y, depth, ok := cam.Project(pos)
		if !ok {
			return
		}
		col, row := v.toCell(x, y)
		sprites = append(sprites, sprite{
			col:    col,
			row:    row,
			radius: cam.ProjectedRadius(radius, depth) * sh / 2,
			depth:  depth,
			glyph:  glyph,
			style:  style,
		})
	}

	add(celestial.Vector3{}, celestial.SunRadius, '@', styleSun)
	selected := v.picker.Selection()
	for _, o := range st.Bodies {
		style := styleDefault.Foreground(bodyColors[o.Body.Name])
		if o.Body.Name == selected {
			style = style.Reverse(true)
		}
		add(o.Position, o.Body.Radius, rune(o.Body.Name[0]), style)
	}

	// far to near so closer bodies paint over
	sort.Slice(sprites, func(i, j int) bool {
		return sprites[i].depth > sprites[j].depth
	})
	for _, s := range sprites {
		v.paint(s, int(sh))
	}
}

// paint fills the cells covered by a sprite's disc, always at least one
func (v *View) paint(s sprite, sceneRows int) {
	set := func(c, r int) {
		if c >= 0 && c < v.width && r >= 0 && r < sceneRows {
			v.screen.SetContent(c, r, s.glyph, nil, s.style)
		}
	}

	set(int(s.col), int(s.row))
	if s.radius < 0.5 {
		return
	}

	// a row is two columns tall
	rx := s.radius / cellAspect
	for r := int(math.Floor(s.row - s.radius)); r <= int(math.Ceil(s.row+s.radius)); r++ {
		for c := int(math.Floor(s.col - rx)); c <= int(math.Ceil(s.col+rx)); c++ {
			dy := (float64(r) + 0.5 - s.row) / s.radius
			dx := (float64(c) + 0.5 - s.col) / rx
			if dx*dx+dy*dy <= 1 {
				set(c, r)
			}
		}
	}
}

func (v *View) drawStatus(st *sim.State) {
	row := v.height - 1
	if v.panel.IsOpen() {
		row = v.height - panelRows - 1
	}
	orbits := "off"
	if st.OrbitsVisible {
		orbits = "on"
	}
	sel := v.picker.Selection()
	if sel == "" {
		sel = "-"
	}
	line := fmt.Sprintf(" [m] %s  [o] Orbits: %s  selected: %s  frame %d  (click a planet, Ctrl-C quits)",
		st.MovementLabel(), orbits, sel, st.Frame)

	for c := 0; c < v.width; c++ {
		v.screen.SetContent(c, row, ' ', nil, styleStatus)
	}
	v.text(0, row, line, styleStatus)
}

func (v *View) drawPanel(conv *chat.Conversation) {
	top := v.height - panelRows
	for c := 0; c < v.width; c++ {
		v.screen.SetContent(c, top, '─', nil, styleBorder)
	}
	v.text(2, top, fmt.Sprintf(" %s  [Esc] close  [PgUp/PgDn] scroll ", conv.Body), styleBorder)

	lines := panelRows - 2
	for i, e := range conv.Transcript.Visible(lines) {
		style := styleDefault.Foreground(bodyColors[e.Speaker])
		switch e.Speaker {
		case chat.UserSpeaker:
			style = styleUser
		case chat.SystemSpeaker:
			style = styleSystem
		}
		v.text(1, top+1+i, e.Speaker+": "+e.Text, style)
	}

	v.text(1, v.height-1, "> "+string(v.input)+"_", styleInput)
}

// text writes s from (col, row), clipped to the screen width
func (v *View) text(col, row int, s string, style tcell.Style) {
	if row < 0 || row >= v.height {
		return
	}
	for _, r := range s {
		if col >= v.width {
			return
		}
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}
