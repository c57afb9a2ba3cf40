// Package status renders the pull-style status page.
package status

import (
	"bytes"
	"html/template"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>SuperSonic Waterlevel Emitter</title>
</head>
<body>
<h1>&#127754; SuperSonic Waterlevel Emitter &#127754;</h1>
<div><p>WaterLevel: <span id="level">{{if .HasLevel}}{{.Level}}% {{end}}</span></p></div>
<script>
(function () {
  var host = {{.Address}} || window.location.hostname;
  var ws = new WebSocket("ws://" + host + ":" + {{.PushPort}} + "/");
  ws.onmessage = function (e) {
    var m = /^Event:NewLevel:(-?\d+)$/.exec(e.data);
    if (m) {
      document.getElementById("level").textContent = m[1] + "% ";
    }
  };
})();
</script>
</body>
</html>
`))

// Page holds the most recently rendered status page.
type Page struct {
	address  string
	pushPort string

	mu       sync.RWMutex
	rendered []byte
	level    int
	hasLevel bool
}

// NewPage returns a page that advertises address and the push listener's
// port to the live-update script. An empty address makes the script use the
// host the page was loaded from. The page is rendered once without a level.
func NewPage(address, pushPort string) (*Page, error) {
	p := &Page{address: address, pushPort: pushPort}
	if err := p.render(0, false); err != nil {
		return nil, err
	}
	return p, nil
}

// Render re-renders the page with level.
func (p *Page) Render(level int) error {
	return p.render(level, true)
}

func (p *Page) render(level int, hasLevel bool) error {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Level    int
		HasLevel bool
		Address  string
		PushPort string
	}{
		Level:    level,
		HasLevel: hasLevel,
		Address:  p.address,
		PushPort: p.pushPort,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to render status page")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rendered = buf.Bytes()
	p.level = level
	p.hasLevel = hasLevel

	return nil
}

// Bytes returns the cached page. The returned slice must not be modified.
func (p *Page) Bytes() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rendered
}

// Level returns the level embedded in the cached page, if any.
func (p *Page) Level() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level, p.hasLevel
}
