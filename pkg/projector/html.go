package projector

import (
	"html/template"
	"io"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8" />
<title>{{.Title}}</title>
<style>
  body { margin: 0; overflow: hidden; background: #000; }
  #info { position: absolute; top: 10px; left: 10px; color: #fff; font-family: monospace;
          background: rgba(0,0,0,0.7); padding: 10px; border-radius: 5px; font-size: 12px; }
</style>
<script src="https://unpkg.com/3d-force-graph"></script>
</head>
<body>
<div id="info">
  <div>{{.Title}}</div>
  <div>Nodes: <span id="node-count">0</span> | Links: <span id="link-count">0</span></div>
  <div id="selected"></div>
</div>
<div id="graph"></div>
<script>
  const snapshotURL = {{.SnapshotURL}};
  const graph = ForceGraph3D()(document.getElementById('graph'))
    .nodeLabel('label')
    .nodeColor(n => n.color)
    .nodeVal(n => n.size)
    .linkWidth(l => l.width)
    .linkOpacity({{.LinkOpacity}})
    .backgroundColor('#000000')
    .onNodeClick(n => {
      document.getElementById('selected').textContent = n.kind + ': ' + n.description;
    });
  let seen = -1;
  async function refresh() {
    const res = await fetch(snapshotURL);
    if (res.ok) {
      const frame = await res.json();
      if (frame.nodes.length !== seen) {
        seen = frame.nodes.length;
        graph.graphData({ nodes: frame.nodes, links: frame.links });
        document.getElementById('node-count').textContent = frame.nodes.length;
        document.getElementById('link-count').textContent = frame.links.length;
      }
    }
    setTimeout(refresh, {{.PollMillis}});
  }
  refresh();
</script>
</body>
</html>
`))

// PageOptions configures the HTML viewer page.
type PageOptions struct {
	Title       string
	SnapshotURL string
	PollMillis  int
}

// WritePage renders a viewer page that polls SnapshotURL for Visual frames.
func WritePage(w io.Writer, opts PageOptions) error {
	if opts.Title == "" {
		opts.Title = "Cognitive Cartography"
	}
	if opts.PollMillis <= 0 {
		opts.PollMillis = 500
	}
	return pageTemplate.Execute(w, struct {
		PageOptions
		LinkOpacity float64
	}{opts, LinkOpacity})
}
