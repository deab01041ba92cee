package health

import (
	"bytes"
	"html/template"
	"time"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"uptime": func(s int64) string { return (time.Duration(s) * time.Second).String() },
	"ok": func(d DepStatus) bool {
		return d.Status == statusConnected || d.Status == statusReachable || d.Status == statusDisabled
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta http-equiv="refresh" content="15">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Commenergy Backend · Status</title>
  <style>
    :root { --green: #0f766e; --dark: #12332c; --muted: #64748b; --bg: #f6f8f7; --red: #dc2626; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; padding: 40px 20px; }
    .container { max-width: 980px; margin: 0 auto; }
    h1 { font-size: 40px; margin: 0 0 6px; letter-spacing: -1px; }
    h1.issue { color: var(--red); }
    .sub { color: var(--muted); font-weight: 600; margin-bottom: 28px; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; }
    .card { background: #fff; border-radius: 16px; padding: 24px; box-shadow: 0 10px 40px -20px rgba(15,118,110,.3); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 800; letter-spacing: 2px; color: #94a3b8; margin-bottom: 14px; }
    .big { font-size: 34px; font-weight: 800; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #f1f5f9; font-size: 14px; font-weight: 600; }
    .row:last-child { border-bottom: none; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; font-weight: 800; }
    .pill.ok { background: rgba(15,118,110,.08); color: var(--green); }
    .pill.err { background: rgba(220,38,38,.08); color: var(--red); }
    .footer { margin-top: 16px; font-family: monospace; font-size: 13px; color: var(--muted); display: flex; justify-content: space-between; }
    a { color: var(--green); font-weight: 700; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <div class="container">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <div class="sub">Sharing workflow backend · {{.Runtime.Platform}} · {{.Runtime.GoVersion}}</div>
    <div class="grid">
      <div class="card">
        <div class="label">Traffic</div>
        <div class="big">{{.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}} ms</span></div>
      </div>
      <div class="card">
        <div class="label">Runtime</div>
        <div class="big">{{uptime .Runtime.UptimeSeconds}}</div>
        <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
        <div class="row"><span>Allocated</span><span>{{.Runtime.Memory.AllocMB}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
      </div>
      <div class="card">
        <div class="label">Dependencies</div>
        {{range $name, $dep := .Dependencies}}
        <div class="row"><span>{{$name}}</span><span class="pill {{if ok $dep}}ok{{else}}err{{end}}">{{$dep.Status}}{{with $dep.PingMs}} · {{.}} ms{{end}}</span></div>
        {{end}}
      </div>
    </div>
    <div class="footer">
      {{with .Traffic.LastRequest}}<span>LAST INBOUND {{.Method}} {{.Path}} from {{.IP}}</span>{{else}}<span>No inbound requests yet</span>{{end}}
      <a href="/health/errors">error log</a>
    </div>
  </div>
</body>
</html>`))

// RenderDashboardHTML returns the HTML status page served at GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "", err
	}
	return buf.String(), nil
}
