package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/assistant"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/config"
)

// WebChannel serves the browser chat UI and its JSON API.
type WebChannel struct {
	assistant *assistant.Assistant
	cfg       config.WebConfig
	botName   string
	log       zerolog.Logger
	server    *http.Server
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Session string `json:"session"`
}

type executeRequest struct {
	Code    string `json:"code"`
	Session string `json:"session"`
}

type clearRequest struct {
	Session string `json:"session"`
}

func NewWebChannel(a *assistant.Assistant, cfg config.WebConfig, botName string, log zerolog.Logger) *WebChannel {
	if botName == "" {
		botName = "Assistant"
	}
	return &WebChannel{assistant: a, cfg: cfg, botName: botName, log: log}
}

// Router builds the gin engine serving the chat page and API.
func (c *WebChannel) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", c.handleIndex)
	api := r.Group("/api")
	{
		api.POST("/chat", c.handleChat)
		api.POST("/execute", c.handleExecute)
		api.GET("/history", c.handleHistory)
		api.POST("/clear", c.handleClear)
	}
	return r
}

// Run serves HTTP until ctx is cancelled.
func (c *WebChannel) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	c.server = &http.Server{Addr: addr, Handler: c.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- c.server.ListenAndServe() }()
	c.log.Info().Str("addr", addr).Msg("web ui listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server: %w", err)
	}
}

func sessionKey(session string) string {
	if session == "" {
		session = "default"
	}
	return "web:" + session
}

func (c *WebChannel) handleChat(g *gin.Context) {
	var req chatRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := c.assistant.Respond(g.Request.Context(), sessionKey(req.Session), req.Message, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("chat request failed")
		g.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	g.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (c *WebChannel) handleExecute(g *gin.Context) {
	var req executeRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snippet := req.Code
	if snippet == "" {
		latest, ok := c.assistant.LatestCode(sessionKey(req.Session))
		if !ok {
			g.JSON(http.StatusBadRequest, gin.H{"error": "no code to execute"})
			return
		}
		snippet = latest
	}

	res, err := c.assistant.ExecuteCode(g.Request.Context(), snippet)
	if err != nil {
		g.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	g.JSON(http.StatusOK, gin.H{
		"output":  res.Output,
		"error":   res.Error,
		"success": res.Success,
	})
}

func (c *WebChannel) handleHistory(g *gin.Context) {
	key := sessionKey(g.Query("session"))
	g.JSON(http.StatusOK, gin.H{"messages": c.assistant.History(key)})
}

func (c *WebChannel) handleClear(g *gin.Context) {
	var req clearRequest
	_ = g.ShouldBindJSON(&req)
	c.assistant.ClearSession(sessionKey(req.Session))
	g.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (c *WebChannel) handleIndex(g *gin.Context) {
	g.Header("Content-Type", "text/html; charset=utf-8")
	g.String(http.StatusOK, indexPage, c.botName, c.botName)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 760px; margin: 2em auto; }
#log { border: 1px solid #ccc; padding: 1em; height: 420px; overflow-y: auto; white-space: pre-wrap; }
.user { color: #046; }
.assistant { color: #222; }
form { display: flex; gap: 8px; margin-top: 1em; }
input { flex: 1; padding: 8px; }
</style>
</head>
<body>
<h2>%s</h2>
<div id="log"></div>
<form id="f">
<input id="m" autocomplete="off" placeholder="Ask a Python question...">
<button>Send</button>
</form>
<script>
const log = document.getElementById('log');
function add(role, text) {
  const d = document.createElement('div');
  d.className = role;
  d.textContent = (role === 'user' ? 'You: ' : 'Bot: ') + text;
  log.appendChild(d);
  log.scrollTop = log.scrollHeight;
}
document.getElementById('f').addEventListener('submit', async (e) => {
  e.preventDefault();
  const input = document.getElementById('m');
  const message = input.value.trim();
  if (!message) return;
  input.value = '';
  add('user', message);
  const resp = await fetch('/api/chat', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({message})
  });
  const data = await resp.json();
  add('assistant', data.reply || data.error || 'no reply');
});
</script>
</body>
</html>`
