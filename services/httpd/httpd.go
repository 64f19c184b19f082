// Package httpd is the device HTTP front-end: CGI-style actuation routes,
// the embedded status page and a JSON status endpoint.
package httpd

import (
	"context"
	"embed"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"servocode-go/bus"
	"servocode-go/errcode"
	"servocode-go/services/actuation"
	"servocode-go/services/topics"
	"servocode-go/types"
	"servocode-go/x/logx"
)

//go:embed web/index.html web/script.js
var web embed.FS

type Options struct {
	Addr string
	Conn *bus.Connection // optional; backs /status
}

type Server struct {
	opts Options
	mux  *http.ServeMux

	mu   sync.Mutex
	addr string
	srv  *http.Server
}

func New(opts Options) *Server {
	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.page("index.html", "text/html; charset=utf-8"))
	s.mux.HandleFunc("/index.html", s.page("index.html", "text/html; charset=utf-8"))
	s.mux.HandleFunc("/script.js", s.page("script.js", "application/javascript"))
	s.mux.HandleFunc("/status", s.status)
	return s
}

// RegisterCGI mounts one handler per route. Query parameters reach the
// handler in request order and the client is redirected to the page it
// returns.
func (s *Server) RegisterCGI(routes []actuation.Route) {
	for _, r := range routes {
		h := r.Handler
		s.mux.HandleFunc(r.Path, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet && req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			to := h.Handle(req.Context(), ParseQuery(req.URL.RawQuery))
			http.Redirect(w, req, to, http.StatusFound)
		})
		logx.Info("cgi registered", "path", r.Path)
	}
}

// Handle mounts an extra handler (e.g. /metrics on the simulator).
func (s *Server) Handle(path string, h http.Handler) { s.mux.Handle(path, h) }

// ServeHTTP makes the mux reachable without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Start binds the listener and serves in the background until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errcode.Wrap(errcode.ListenFailed, "httpd.start", err)
	}
	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.srv = srv
	s.mu.Unlock()

	logx.Info("http listening", "addr", s.Addr())
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logx.Error("http serve", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	return nil
}

// Addr is the bound listener address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ParseQuery splits a raw query into ordered pairs. A name or value that
// fails to unescape is kept raw, so it still takes its place in the order.
func ParseQuery(raw string) []actuation.Param {
	var out []actuation.Param
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		out = append(out, actuation.Param{Name: unescape(k), Value: unescape(v)})
	}
	return out
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func (s *Server) page(name, ctype string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/"+name {
			http.NotFound(w, r)
			return
		}
		b, err := web.ReadFile("web/" + name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ctype)
		_, _ = w.Write(b)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Report(s.opts.Conn))
}

// Report assembles the status view from retained bus state.
func Report(conn *bus.Connection) types.StatusReport {
	rep := types.StatusReport{Stage: types.StageInitializing.String(), Actuators: []types.ActuatorValue{}}
	if conn == nil {
		return rep
	}
	for _, m := range conn.Retained(topics.Stage()) {
		if st, ok := m.Payload.(types.StageState); ok {
			rep.Stage, rep.Cause = st.Name, st.Cause
		}
	}
	for _, m := range conn.Retained(topics.ActuatorValues()) {
		if v, ok := m.Payload.(types.ActuatorValue); ok {
			rep.Actuators = append(rep.Actuators, v)
		}
	}
	sort.Slice(rep.Actuators, func(i, j int) bool { return rep.Actuators[i].ID < rep.Actuators[j].ID })
	return rep
}
