package viz

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/matsen/relgraph/internal/overlay"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate *template.Template

func init() {
	compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))
}

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Title   string
	Offline bool // Draw inline SVG instead of loading Cytoscape.js from a CDN
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{
		Title:   "Relationship Graph",
		Offline: false,
	}
}

// GenerateHTML generates a self-contained HTML file for the scene.
func GenerateHTML(scene *Scene, opts HTMLOptions) (string, error) {
	if scene == nil {
		return "", fmt.Errorf("scene cannot be nil")
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	if scene.IsEmpty() {
		return generateEmptyHTML(opts.Title), nil
	}

	graphJSON, err := scene.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:        opts.Title,
		Offline:      opts.Offline,
		GraphJSON:    template.JS(graphJSON),
		Legend:       scene.Legend,
		Zoom:         scene.Viewport.K,
		PanX:         scene.Viewport.X,
		PanY:         scene.Viewport.Y,
		FlipFraction: overlay.FlipFraction,
		OffsetX:      overlay.OffsetX,
		OffsetY:      overlay.OffsetY,
	}
	if data.Zoom == 0 {
		data.Zoom = 1
	}
	if opts.Offline {
		var svg strings.Builder
		if err := WriteSVG(&svg, scene); err != nil {
			return "", fmt.Errorf("rendering inline SVG: %w", err)
		}
		data.SVG = template.HTML(svg.String())
	} else {
		data.ScriptTag = template.HTML(cdnScriptTag)
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	Offline   bool
	ScriptTag template.HTML
	SVG       template.HTML
	GraphJSON template.JS
	Legend    []LegendEntry

	Zoom, PanX, PanY               float64
	FlipFraction, OffsetX, OffsetY float64
}

const cdnScriptTag = `<script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>`

// generateEmptyHTML returns HTML for an empty graph state.
func generateEmptyHTML(title string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>` + template.HTMLEscapeString(title) + ` - Empty</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      justify-content: center;
      align-items: center;
      height: 100vh;
      margin: 0;
      background: #f5f5f5;
    }
    .empty-state {
      text-align: center;
      color: #666;
    }
    .empty-state h2 {
      margin-bottom: 0.5em;
      color: #333;
    }
    .empty-state code {
      background: #e0e0e0;
      padding: 2px 6px;
      border-radius: 3px;
    }
  </style>
</head>
<body>
  <div class="empty-state">
    <h2>No relationships to show</h2>
    <p>The current snapshot or cluster filter has no nodes.</p>
    <p>Try a lower <code>--min-weight</code> or clear the cluster filter.</p>
  </div>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  {{.ScriptTag}}
  <style>
    * {
      box-sizing: border-box;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      margin: 0;
      padding: 0;
      background: #f5f5f5;
    }
    #cy {
      position: relative;
      width: 100%;
      height: 100vh;
      background: white;
      overflow: hidden;
    }
    #cy svg {
      width: 100%;
      height: 100%;
    }
    #legend {
      position: absolute;
      top: 12px;
      left: 12px;
      background: rgba(255,255,255,0.9);
      border: 1px solid #ddd;
      border-radius: 4px;
      padding: 6px 10px;
      font-size: 12px;
      z-index: 900;
    }
    #legend .swatch {
      display: inline-block;
      width: 10px;
      height: 10px;
      border-radius: 50%;
      margin-right: 6px;
    }
    #tooltip {
      position: absolute;
      display: none;
      background: white;
      border: 1px solid #ccc;
      border-radius: 4px;
      padding: 8px 12px;
      box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      max-width: 300px;
      font-size: 13px;
      z-index: 1000;
      pointer-events: none;
    }
    #tooltip.left {
      transform: translateX(-100%);
    }
    #tooltip .label {
      font-weight: bold;
      margin-bottom: 4px;
    }
    #tooltip .detail {
      color: #555;
      margin: 2px 0;
    }
  </style>
</head>
<body>
  <div id="cy">{{.SVG}}</div>
  <div id="legend">
    {{range .Legend}}<div><span class="swatch" style="background: {{.Color}}"></span>{{.Label}} ({{.Count}})</div>
    {{end}}
  </div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      const flipFraction = {{.FlipFraction}};
      const offsetX = {{.OffsetX}};
      const offsetY = {{.OffsetY}};
      const container = document.getElementById('cy');
      const tooltip = document.getElementById('tooltip');

      const nodes = {};
      graphData.nodes.forEach(function(n) { nodes[n.data.id] = n.data; });
      const edges = {};
      graphData.edges.forEach(function(e) { edges[e.data.id] = e.data; });

      // Flip to the left of the pointer past flipFraction of the width.
      function showTooltip(clientX, clientY, content) {
        const bounds = container.getBoundingClientRect();
        const relX = clientX - bounds.left;
        const relY = clientY - bounds.top;
        tooltip.innerHTML = content;
        tooltip.style.display = 'block';
        if (relX > flipFraction * bounds.width) {
          tooltip.classList.add('left');
          tooltip.style.left = (relX - offsetX) + 'px';
        } else {
          tooltip.classList.remove('left');
          tooltip.style.left = (relX + offsetX) + 'px';
        }
        tooltip.style.top = (relY + offsetY) + 'px';
      }

      function hideTooltip() {
        tooltip.style.display = 'none';
      }

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;')
                  .replace(/</g, '&lt;')
                  .replace(/>/g, '&gt;')
                  .replace(/"/g, '&quot;');
      }

      function nodeTooltip(data) {
        let html = '<div class="label">' + escapeHtml(data.label) + '</div>';
        html += '<div class="detail">Cluster: ' + escapeHtml(data.cluster) + '</div>';
        html += '<div class="detail">Connections: ' + data.degree + '</div>';
        return html;
      }

      function edgeTooltip(data) {
        const a = nodes[data.source] || {label: data.source};
        const b = nodes[data.target] || {label: data.target};
        let html = '<div class="label">' + escapeHtml(a.label) + ' &harr; ' + escapeHtml(b.label) + '</div>';
        html += '<div class="detail">' + escapeHtml(a.label) + ' &rarr; ' + escapeHtml(b.label) + ': ' + data.aToB + '</div>';
        html += '<div class="detail">' + escapeHtml(b.label) + ' &rarr; ' + escapeHtml(a.label) + ': ' + data.bToA + '</div>';
        html += '<div class="detail">Threads: ' + data.threads + '</div>';
        html += '<div class="detail">' + (data.asymmetric ? 'Asymmetric' : 'Symmetric') + '</div>';
        return html;
      }

      // Hover updates are coalesced to one per animation frame.
      let pending = null;
      function scheduleHover(fn) {
        if (pending === null) {
          requestAnimationFrame(function() {
            const run = pending;
            pending = null;
            if (run) run();
          });
        }
        pending = fn;
      }

      {{if .Offline}}
      container.addEventListener('mousemove', function(evt) {
        const el = evt.target.closest('[id]');
        scheduleHover(function() {
          if (el && nodes[el.id]) {
            showTooltip(evt.clientX, evt.clientY, nodeTooltip(nodes[el.id]));
          } else if (el && edges[el.id]) {
            showTooltip(evt.clientX, evt.clientY, edgeTooltip(edges[el.id]));
          } else {
            hideTooltip();
          }
        });
      });
      container.addEventListener('mouseleave', function() {
        scheduleHover(hideTooltip);
      });
      {{else}}
      const cy = cytoscape({
        container: container,
        elements: graphData,
        zoom: {{.Zoom}},
        pan: {x: {{.PanX}}, y: {{.PanY}}},
        minZoom: 0.2,
        maxZoom: 8,
        style: [
          {
            selector: 'node',
            style: {
              'background-color': 'data(color)',
              'label': 'data(label)',
              'color': '#333',
              'font-size': '11px',
              'text-valign': 'bottom',
              'text-margin-y': '4px',
              'width': 'mapData(radius, 0, 50, 0, 100)',
              'height': 'mapData(radius, 0, 50, 0, 100)',
              'border-width': 2,
              'border-color': '#fff'
            }
          },
          {
            selector: 'edge',
            style: {
              'line-color': '#95A5A6',
              'opacity': 0.6,
              'width': 'data(width)',
              'curve-style': 'bezier'
            }
          },
          {
            selector: 'edge[direction="a_to_b"]',
            style: {
              'target-arrow-shape': 'triangle',
              'target-arrow-color': '#95A5A6'
            }
          },
          {
            selector: 'edge[direction="b_to_a"]',
            style: {
              'source-arrow-shape': 'triangle',
              'source-arrow-color': '#95A5A6'
            }
          },
          {
            selector: 'node.highlighted',
            style: {
              'border-width': 3,
              'border-color': '#ff6b6b'
            }
          },
          {
            selector: 'node.dimmed',
            style: {
              'opacity': 0.3
            }
          },
          {
            selector: 'edge.dimmed',
            style: {
              'opacity': 0.1
            }
          }
        ],
        layout: {
          name: 'preset',
          fit: false
        }
      });

      cy.on('mouseover', 'node', function(evt) {
        const e = evt.originalEvent;
        scheduleHover(function() { showTooltip(e.clientX, e.clientY, nodeTooltip(evt.target.data())); });
      });
      cy.on('mouseover', 'edge', function(evt) {
        const e = evt.originalEvent;
        scheduleHover(function() { showTooltip(e.clientX, e.clientY, edgeTooltip(evt.target.data())); });
      });
      cy.on('mouseout', 'node, edge', function() {
        scheduleHover(hideTooltip);
      });

      cy.on('tap', 'node', function(evt) {
        const node = evt.target;
        cy.elements().removeClass('highlighted dimmed');
        const neighborhood = node.neighborhood().add(node);
        neighborhood.addClass('highlighted');
        cy.elements().not(neighborhood).addClass('dimmed');
      });

      cy.on('tap', function(evt) {
        if (evt.target === cy) {
          cy.elements().removeClass('highlighted dimmed');
        }
      });
      {{end}}
    })();
  </script>
</body>
</html>`
