package viz

import (
	"bufio"
	"fmt"
	"image/color"
	"io"

	"github.com/hschendel/stl"
	"github.com/notargets/fieldcover/cover"
	"github.com/notargets/fieldcover/field"
	"github.com/notargets/fieldcover/isoline"
	"github.com/notargets/fieldcover/mesh"
	"github.com/notargets/fieldcover/phase"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteTheta writes one phase value per line (debug.txt)
func WriteTheta(w io.Writer, theta []float64) error {
	bw := bufio.NewWriter(w)
	for _, t := range theta {
		if _, err := fmt.Fprintf(bw, "%.17g\n", t); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteField writes the unit phase direction (B_f v_f) × n_f of every face,
// one "x y z" line per face (debug.field)
func WriteField(w io.Writer, fs *field.Surface) error {
	bw := bufio.NewWriter(w)
	for _, u := range phase.PhaseDirections(fs) {
		if _, err := fmt.Fprintf(bw, "%.17g %.17g %.17g\n", u.X, u.Y, u.Z); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSplitSTL writes the split mesh as a binary STL solid
func WriteSplitSTL(w io.Writer, split *mesh.Surface, name string) error {
	solid := &stl.Solid{Name: name}
	solid.Triangles = make([]stl.Triangle, 0, split.NumFaces)
	for f, face := range split.F {
		var tri stl.Triangle
		tri.Normal = vec3(split.FaceNormal(f))
		for c := 0; c < 3; c++ {
			tri.Vertices[c] = vec3(split.V[face[c]])
		}
		solid.Triangles = append(solid.Triangles, tri)
	}
	if err := solid.WriteAll(w); err != nil {
		return fmt.Errorf("write split mesh STL: %w", err)
	}
	tracer().Debugf("wrote %d triangles to STL solid %q", len(solid.Triangles), name)
	return nil
}

func vec3(p r3.Vec) stl.Vec3 {
	return stl.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}

var (
	edgeColor    = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	isolineColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

// PlotSplit draws the split mesh seen along z with its sliced edges and the
// isolines of θ. format is any gonum plot image format, such as "png" or "svg".
func PlotSplit(w io.Writer, c *cover.Cover, lines []isoline.IsoLine, format string) error {
	split := c.Split
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d-sheet cover", c.Layers)
	p.HideAxes()

	var p0, p1 []r3.Vec
	for _, edge := range split.E {
		p0 = append(p0, split.V[edge.V0])
		p1 = append(p1, split.V[edge.V1])
	}
	if err := addSegments(p, p0, p1, edgeColor, 0.3); err != nil {
		return err
	}

	s0, s1, colors := CutEdges(c)
	if len(colors) > 0 {
		cc := colors[0]
		sliced := color.RGBA{R: uint8(255 * cc[0]), G: uint8(255 * cc[1]), B: uint8(255 * cc[2]), A: 255}
		if err := addSegments(p, s0, s1, sliced, 1.2); err != nil {
			return err
		}
	}

	pts := IsolinePoints(split, lines)
	var i0, i1 []r3.Vec
	for k := 0; k+1 < len(pts); k += 2 {
		i0 = append(i0, pts[k])
		i1 = append(i1, pts[k+1])
	}
	if err := addSegments(p, i0, i1, isolineColor, 0.8); err != nil {
		return err
	}

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("plot split mesh: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// addSegments adds one line per segment p0[k]-p1[k], dropping z
func addSegments(p *plot.Plot, p0, p1 []r3.Vec, c color.Color, width float64) error {
	for k := range p0 {
		l, err := plotter.NewLine(plotter.XYs{{X: p0[k].X, Y: p0[k].Y}, {X: p1[k].X, Y: p1[k].Y}})
		if err != nil {
			return fmt.Errorf("segment %d: %w", k, err)
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(width)
		p.Add(l)
	}
	return nil
}
