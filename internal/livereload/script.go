package livereload

import (
	"bytes"
	"net/http"
)

const clientScript = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(scheme + location.host + "` + SocketPath + `");
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "` + MessageReload + `") {
        location.reload();
      } else if (msg.type === "` + MessageBuildError + `") {
        console.error("docserver: rebuild failed: " + msg.content);
      }
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
`

// ScriptTag is inserted into served HTML pages.
const ScriptTag = `<script src="` + ScriptPath + `"></script>`

// ServeScript serves the browser side of live reload.
func ServeScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte(clientScript))
	}
}

// InjectScript returns body with ScriptTag placed before the last </body>,
// or appended when the document has no closing body tag.
func InjectScript(body []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(body), []byte("</body>"))
	if idx < 0 {
		out := make([]byte, 0, len(body)+len(ScriptTag))
		out = append(out, body...)
		return append(out, ScriptTag...)
	}

	out := make([]byte, 0, len(body)+len(ScriptTag))
	out = append(out, body[:idx]...)
	out = append(out, ScriptTag...)
	return append(out, body[idx:]...)
}
