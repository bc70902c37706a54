package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/panel-link/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"lower": strings.ToLower,
	"join":  strings.Join,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Panel {{.Config.Panel}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.stable { color: #0060ff; font-weight: bold; }
.warning { color: #ff8000; font-weight: bold; }
.critical { color: red; font-weight: bold; }
.unknown { color: #8000ff; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Panel {{.Config.Panel}} ({{.Config.Role}})<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Shared State</h2>
<table>
<tr><th>State</th><td id="state" class="{{lower .Shared.State.String}}">{{.Shared.State}}</td></tr>
<tr><th>Mode</th><td id="mode">{{.Shared.Mode}}</td></tr>
<tr><th>Booted panels</th><td id="bootup">{{join .Shared.Bootup.Names " "}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Link</h2>
<table>
<tr><th>Layout</th><td>{{.Config.Layout}}</td></tr>
<tr><th>Port</th><td>{{.Config.SerialPort}} @ {{.Config.Baud}}</td></tr>
<tr><th>Frames OK</th><td id="frames-ok">{{.Link.FramesOK}}</td></tr>
<tr><th>Frames sent</th><td id="frames-sent">{{.Link.FramesSent}}</td></tr>
<tr><th>Dropped</th><td id="dropped">{{.Link.Dropped}}</td></tr>
<tr><th>Overflows</th><td>{{.Link.Overflows}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>State</th><td>{{.Counts.State}}</td></tr>
<tr><th>Mode</th><td>{{.Counts.Mode}}</td></tr>
<tr><th>Bootup</th><td>{{.Counts.Bootup}}</td></tr>
<tr><th>Perform</th><td>{{.Counts.Perform}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function set(id, v) {
    var el = document.getElementById(id);
    if (el) el.textContent = v;
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var st = JSON.parse(ev.data).status;
        var el = document.getElementById("state");
        el.textContent = st.state;
        el.className = st.state.toLowerCase();
        set("mode", st.mode);
        set("bootup", st.bootup.join(" "));
        set("frames-ok", st.link.frames_ok);
        set("frames-sent", st.link.frames_sent);
        set("dropped", st.link.checksum_errors + st.link.length_errors + st.link.field_errors);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
