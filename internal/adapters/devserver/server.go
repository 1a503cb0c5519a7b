// Package devserver serves the destination tree with LiveReload script injection.
package devserver

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"go.trai.ch/trowel/internal/ui/output"
	"go.trai.ch/zerr"
)

const (
	// ReloadPath is the LiveReload websocket endpoint.
	ReloadPath = "/livereload"
	// ScriptPath serves the embedded LiveReload client.
	ScriptPath = "/livereload.js"
	// IndexFile is served for directory requests.
	IndexFile = "index.html"

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ScriptTag is injected into every served HTML page.
const ScriptTag = `<script src="` + ScriptPath + `"></script>`

//go:embed livereload.js
var clientScript []byte

// Server is the development HTTP server.
type Server struct {
	root   string
	engine *gin.Engine
	log    zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAccessLog sends request logs to w.
func WithAccessLog(w io.Writer) Option {
	return func(s *Server) {
		cw := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    output.ColorProfile() == termenv.Ascii,
		}
		s.log = zerolog.New(cw).With().Timestamp().Logger()
	}
}

// New creates a Server serving root. reload handles the LiveReload websocket.
func New(root string, reload http.Handler, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		root: root,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(s.log))

	r.GET(ReloadPath, gin.WrapH(reload))
	r.GET(ScriptPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", clientScript)
	})
	r.NoRoute(s.serveStatic)

	s.engine = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe binds addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return zerr.Wrap(err, "dev server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return zerr.Wrap(err, "dev server shutdown failed")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return zerr.Wrap(err, "dev server failed")
	}
	return nil
}

func (s *Server) serveStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	// Cleaning a rooted path never climbs above the root.
	file := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))

	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, IndexFile)
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	if !isHTML(file) {
		c.File(file)
		return
	}

	data, err := os.ReadFile(file) //nolint:gosec // confined to the served root
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", InjectScript(data))
}

func isHTML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".html" || ext == ".htm"
}

// InjectScript inserts ScriptTag before the last closing body tag, or appends it.
func InjectScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte(nil), page...), ScriptTag...)
	}

	out := make([]byte, 0, len(page)+len(ScriptTag))
	out = append(out, page[:idx]...)
	out = append(out, ScriptTag...)
	out = append(out, page[idx:]...)
	return out
}
