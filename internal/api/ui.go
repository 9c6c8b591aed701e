package api

import (
	"net/http"
)

const monitorHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Sentient Sim - Runs</title>
    <style>
        body { font-family: monospace; background: #1a1a2e; color: #eee; margin: 0; }
        header { background: #16213e; padding: 12px 20px; border-bottom: 1px solid #0f3460; }
        header h1 { font-size: 16px; font-weight: normal; display: inline; }
        #status { float: right; font-size: 12px; }
        table { border-collapse: collapse; margin: 12px 20px; }
        td, th { padding: 2px 10px; text-align: left; }
        .invalid { color: #fca5a5; }
        #log { margin: 12px 20px; font-size: 12px; white-space: pre; }
    </style>
</head>
<body>
<header><h1>Sentient Sim</h1><span id="status">connecting</span></header>
<table>
    <thead><tr><th>run</th><th>scene</th><th>steps</th><th>valid</th><th>trace</th></tr></thead>
    <tbody id="runs"></tbody>
</table>
<div id="log"></div>
<script>
    function loadRuns() {
        fetch('/runs?limit=20').then(r => r.json()).then(runs => {
            const body = document.getElementById('runs');
            body.innerHTML = '';
            for (const run of runs) {
                const tr = document.createElement('tr');
                if (!run.valid) tr.className = 'invalid';
                for (const v of [run.run_id.slice(0, 8), run.scene, run.num_steps, run.valid, run.trace_path]) {
                    const td = document.createElement('td');
                    td.textContent = v;
                    tr.appendChild(td);
                }
                body.appendChild(tr);
            }
        });
    }

    function connect() {
        const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        const ws = new WebSocket(protocol + '//' + location.host + '/ws/events');
        const status = document.getElementById('status');
        const log = document.getElementById('log');
        ws.onopen = () => { status.textContent = 'live'; };
        ws.onclose = () => { status.textContent = 'disconnected'; setTimeout(connect, 2000); };
        ws.onmessage = (msg) => {
            const e = JSON.parse(msg.data);
            log.textContent = e.ts + ' ' + e.event + ' ' + JSON.stringify(e.fields || {}) + '\n' + log.textContent;
            if (e.event === 'sim.completed' || e.event === 'trace.written') loadRuns();
        };
    }

    loadRuns();
    connect();
</script>
</body>
</html>
`

// monitorHandler serves the run monitor page at the root path.
func monitorHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(monitorHTML))
}
