package health

import (
	"bytes"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"lastReq": func(m map[string]interface{}, key string) string {
		if m == nil {
			return "-"
		}
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
		return "-"
	},
	"ping": func(ms *int64) interface{} {
		if ms == nil {
			return "-"
		}
		return *ms
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Vectorium API Status</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#0b1410;color:#e6f2ea;margin:0;padding:32px}
h1{font-size:20px;margin:0 0 4px}
.sub{color:#8fb39c;font-size:13px;margin-bottom:24px}
.grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(220px,1fr));gap:16px}
.card{background:#12201a;border:1px solid #1f3a2c;border-radius:10px;padding:16px}
.card h2{font-size:12px;text-transform:uppercase;letter-spacing:.08em;color:#8fb39c;margin:0 0 12px}
.row{display:flex;justify-content:space-between;font-size:14px;padding:4px 0}
.ok{color:#4ade80}.bad{color:#f87171}
#errors{font-family:ui-monospace,monospace;font-size:12px;white-space:pre-wrap;color:#fca5a5}
</style>
</head>
<body>
<h1>Vectorium API <span id="status" class="{{if eq .Status "ok"}}ok{{else}}bad{{end}}">{{.Status}}</span></h1>
<div class="sub">{{.Runtime.Platform}} · {{.Runtime.GoVersion}}</div>
<div class="grid">
  <div class="card"><h2>Runtime</h2>
    <div class="row"><span>Uptime (s)</span><span id="uptime">{{.Runtime.UptimeSeconds}}</span></div>
    <div class="row"><span>Heap (MB)</span><span id="heap">{{.Runtime.HeapMB}}</span></div>
    <div class="row"><span>Goroutines</span><span id="goroutines">{{.Runtime.Goroutines}}</span></div>
    <div class="row"><span>Active desks</span><span id="desks">{{.Runtime.ActiveDesks}}</span></div>
  </div>
  <div class="card"><h2>Traffic</h2>
    <div class="row"><span>Requests</span><span id="total">{{.Traffic.TotalRequests}}</span></div>
    <div class="row"><span>Failed</span><span id="failed">{{.Traffic.FailedCount}}</span></div>
    <div class="row"><span>Success rate</span><span id="rate">{{.Traffic.SuccessRate}}%</span></div>
    <div class="row"><span>Avg response (ms)</span><span id="avg">{{.Traffic.AvgResponseTime}}</span></div>
    <div class="row"><span>Last</span><span id="last">{{lastReq .Traffic.LastRequest "method"}} {{lastReq .Traffic.LastRequest "path"}}</span></div>
  </div>
  <div class="card"><h2>Dependencies</h2>
    <div id="deps">{{range $name := .DependencyNames}}{{with index $.Dependencies $name}}
    <div class="row"><span>{{$name}}</span><span class="{{if or (eq .Status "connected") (eq .Status "reachable")}}ok{{else}}bad{{end}}">{{.Status}} ({{ping .PingMs}} ms)</span></div>{{end}}{{end}}
    </div>
  </div>
</div>
<div class="card" style="margin-top:16px"><h2>Recent errors</h2><div id="errors">loading…</div></div>
<script>
const set=(id,v)=>{const el=document.getElementById(id);if(el)el.textContent=v};
async function refresh(){
  try{
    const h=await (await fetch('/health/json')).json();
    const st=document.getElementById('status');st.textContent=h.status;st.className=h.status==='ok'?'ok':'bad';
    set('uptime',h.runtime.uptimeSeconds);set('heap',h.runtime.heapMb);set('goroutines',h.runtime.goroutines);set('desks',h.runtime.activeDesks);
    set('total',h.traffic.totalRequests);set('failed',h.traffic.failedCount);set('rate',h.traffic.successRate+'%');set('avg',h.traffic.avgResponseTime);
    const errs=await (await fetch('/health/errors')).json();
    set('errors',errs.length?errs.map(e=>(e.time||'')+' '+(e.method||'')+' '+(e.path||'')+' '+(e.status||'')+' '+(e.message||'')).join('\n'):'none');
  }catch(e){}
}
refresh();setInterval(refresh,5000);
</script>
</body>
</html>
`))

// RenderDashboardHTML renders the status page served at GET /.
func RenderDashboardHTML(r Result) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}
