package server

import (
	"html/template"
	"io"

	"github.com/san-kum/polecart/internal/render"
)

// SessionID is the page element that receives the websocket session id.
const SessionID = "session"

var pageTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
	<head>
		<meta charset="utf-8">
		<title>polecart</title>
		<style>
			body { background: #111; color: #ccc; font-family: monospace; }
			#scene rect, #scene line { transition-property: x, x1, x2, transform; transition-timing-function: linear; }
			#controls button { margin-right: 0.5em; }
		</style>
	</head>
	<body>
		<div id="scene">{{ .SVG }}</div>
		<div id="controls">
			<button data-action="0">&larr;</button>
			<button data-action="1">&rarr;</button>
			<button id="reset">reset</button>
			<span>session <span id="{{ .SessionID }}"></span></span>
		</div>
		<script>
			const proto = location.protocol === "https:" ? "wss://" : "ws://";
			const ws = new WebSocket(proto + location.host + "/ws");
			const svg = document.querySelector("#scene svg");

			ws.onopen = function (event) {
				console.log("Web socket opened");
			};

			ws.onerror = function (event) {
				console.log("WebSocket error: ", event);
			};

			ws.onmessage = function (event) {
				const frame = JSON.parse(event.data);
				const ms = frame.DurationMS + "ms";
				for (const update of frame.Updates) {
					const ele = document.getElementById(update.EleId);
					if (!ele) {
						continue;
					}
					ele.style.transitionDuration = ms;
					for (const op of update.Ops) {
						if (op.Key === "textContent") {
							ele.textContent = op.Value;
						} else {
							ele.setAttribute(op.Key, op.Value);
						}
					}
				}
			};

			function send(msg) {
				if (ws.readyState === WebSocket.OPEN) {
					ws.send(JSON.stringify(msg));
				}
			}

			svg.addEventListener("mousemove", function (event) {
				const pt = svg.createSVGPoint();
				pt.x = event.clientX;
				pt.y = event.clientY;
				const local = pt.matrixTransform(svg.getScreenCTM().inverse());
				send({type: "mouse", x: local.x});
			});

			for (const btn of document.querySelectorAll("[data-action]")) {
				btn.addEventListener("click", function () {
					send({type: "action", action: Number(btn.dataset.action)});
				});
			}
			document.getElementById("reset").addEventListener("click", function () {
				send({type: "reset"});
			});
			document.addEventListener("keydown", function (event) {
				if (event.key === "ArrowLeft") {
					send({type: "action", action: 0});
				} else if (event.key === "ArrowRight") {
					send({type: "action", action: 1});
				} else if (event.key === "r") {
					send({type: "reset"});
				}
			});
		</script>
	</body>
</html>
`))

type pageData struct {
	SVG       template.HTML
	SessionID string
}

// writePage renders the index page with the scene at rest.
func writePage(w io.Writer, scene render.Scene) error {
	return pageTmpl.Execute(w, pageData{
		SVG:       template.HTML(scene.SVG(0, 0, 0)),
		SessionID: SessionID,
	})
}
