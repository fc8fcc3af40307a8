package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/vibedom/gc"
	"github.com/chrisuehlinger/vibedom/js"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	script := writeFile(t, "ok.js", `
		var v = document.createElement("video");
		document.appendChild(v);
		setTimeout(function() { v.play(); }, 1);
	`)
	_, err := execute(t, "run", script)
	assert.NoError(t, err)
}

func TestRunCommandScriptError(t *testing.T) {
	script := writeFile(t, "bad.js", `document.appendChild(document.createTextNode("x"))`)
	_, err := execute(t, "run", script)
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	page := writeFile(t, "page.html", `<html><body><video src="a.webm"></video></body></html>`)
	script := writeFile(t, "stats.js", `
		var v = document.documentElement.lastChild.firstChild;
		if (!(v instanceof HTMLVideoElement) || v.src !== "a.webm") throw new Error("page not loaded");
		for (var i = 0; i < 10; i++) document.createElement("p");
	`)
	out, err := execute(t, "stats", "--stress-gc", "--html", page, script)
	require.NoError(t, err)

	var stats gc.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Greater(t, stats.Allocations, 10)
	assert.GreaterOrEqual(t, stats.Collections, stats.Allocations)
}

func TestStatsCommandExhaustion(t *testing.T) {
	script := writeFile(t, "grow.js", `var a = []; for (;;) a.push(document.createElement("audio"));`)
	out, err := execute(t, "stats", "--max-slots", "32", script)
	require.Error(t, err)
	assert.True(t, errors.Is(err, js.ErrContextTerminated))

	var stats gc.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 32, stats.Live)
}

func TestStatsCommandTerminatedInTimer(t *testing.T) {
	script := writeFile(t, "late.js", `
		setTimeout(function() { var a = []; for (;;) a.push(document.createElement("p")); }, 0);
		setTimeout(function() {}, 600000);
	`)
	start := time.Now()
	_, err := execute(t, "stats", "--max-slots", "32", script)
	require.Error(t, err)
	assert.True(t, errors.Is(err, js.ErrContextTerminated))
	assert.Less(t, time.Since(start), time.Minute, "pending timers are dropped on termination")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCommandPrintsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")

	_, err = execute(t, "bogus")
	assert.ErrorContains(t, err, `unknown command "bogus"`)
}

func TestRunCommandPageScripts(t *testing.T) {
	page := writeFile(t, "page.html", `<html><head>
		<script>var v = document.createElement("video"); v.src = "clip.webm";</script>
		<script type="text/plain">this is not script</script>
	</head><body><p>hi</p>
		<script id="attach">document.documentElement.lastChild.appendChild(v);</script>
	</body></html>`)
	script := writeFile(t, "check.js", `
		if (!(document.documentElement.lastChild.lastChild instanceof HTMLVideoElement)) throw new Error("missing video");
	`)
	out, err := execute(t, "run", "--dump", "--html", page, script)
	require.NoError(t, err)
	assert.Contains(t, out, `<p>hi</p>`)
	assert.Contains(t, out, `<video src="clip.webm"></video></body></html>`)
}

func TestRunCommandRemotePage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><audio></audio><script src="js/app.js"></script></body></html>`))
	})
	mux.HandleFunc("/js/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`document.documentElement.lastChild.firstChild.volume = 0.25;`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	script := writeFile(t, "check.js", `
		if (document.URL !== "`+server.URL+`/index.html") throw new Error("url " + document.URL);
		if (document.documentElement.lastChild.firstChild.volume !== 0.25) throw new Error("app.js did not run");
	`)
	_, err := execute(t, "run", "--html", server.URL+"/index.html", script)
	require.NoError(t, err)
}
