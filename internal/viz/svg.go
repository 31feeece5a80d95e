package viz

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/matsen/relgraph/internal/graph"
)

const (
	edgeColor     = "#95A5A6"
	edgeOpacity   = 0.6
	labelFontSize = 11
)

// WriteSVG draws the scene as a standalone SVG document. Edges are drawn
// first so nodes sit on top of them.
func WriteSVG(w io.Writer, s *Scene) error {
	bw := bufio.NewWriter(w)

	width, height := s.Width, s.Height
	if width <= 0 || height <= 0 {
		width, height = 800, 600
	}
	k := s.Viewport.K
	if k == 0 {
		k = 1
	}

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" font-family="sans-serif">`+"\n",
		num(width), num(height), num(width), num(height))
	fmt.Fprintf(bw, `<defs><marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M0,0 L10,5 L0,10 z" fill="%s"/></marker></defs>`+"\n", edgeColor)
	fmt.Fprintf(bw, `<g transform="translate(%s,%s) scale(%s)">`+"\n",
		num(s.Viewport.X), num(s.Viewport.Y), num(k))

	radius := make(map[string]float64, len(s.Nodes))
	for _, n := range s.Nodes {
		radius[n.ID] = n.Radius
	}

	bw.WriteString(`<g class="edges">` + "\n")
	for _, e := range s.Edges {
		x1, y1, x2, y2 := trim(e.X1, e.Y1, e.X2, e.Y2, radius[e.Source], radius[e.Target])
		marker := ""
		switch graph.Direction(e.Direction) {
		case graph.DirectionAToB:
			marker = ` marker-end="url(#arrow)"`
		case graph.DirectionBToA:
			marker = ` marker-start="url(#arrow)"`
		}
		fmt.Fprintf(bw, `<line id="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-opacity="%s" stroke-width="%s"%s><title>%s</title></line>`+"\n",
			attr(e.ID), num(x1), num(y1), num(x2), num(y2),
			edgeColor, num(edgeOpacity), num(e.Width), marker,
			html.EscapeString(edgeTitle(e)))
	}
	bw.WriteString("</g>\n")

	bw.WriteString(`<g class="nodes">` + "\n")
	for _, n := range s.Nodes {
		stroke := "#ffffff"
		if n.Pinned {
			stroke = "#333333"
		}
		fmt.Fprintf(bw, `<g id="%s"><circle cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="2"><title>%s</title></circle>`,
			attr(n.ID), num(n.X), num(n.Y), num(n.Radius), attr(n.Color), stroke,
			html.EscapeString(n.Label))
		fmt.Fprintf(bw, `<text x="%s" y="%s" font-size="%d" text-anchor="middle" fill="#333">%s</text></g>`+"\n",
			num(n.X), num(n.Y+n.Radius+labelFontSize+2), labelFontSize,
			html.EscapeString(n.Label))
	}
	bw.WriteString("</g>\n</g>\n</svg>\n")

	return bw.Flush()
}

// trim shortens a segment by r1 at its start and r2 at its end so arrow
// markers land on the node border instead of under the node.
func trim(x1, y1, x2, y2, r1, r2 float64) (float64, float64, float64, float64) {
	dx, dy := x2-x1, y2-y1
	d := math.Hypot(dx, dy)
	if d <= r1+r2 {
		return x1, y1, x2, y2
	}
	ux, uy := dx/d, dy/d
	return x1 + ux*r1, y1 + uy*r1, x2 - ux*r2, y2 - uy*r2
}

func edgeTitle(e Edge) string {
	return fmt.Sprintf("%s – %s: %d → / %d ←, %d threads", e.Source, e.Target, e.AToB, e.BToA, e.Threads)
}

func attr(s string) string {
	return html.EscapeString(s)
}

func num(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
