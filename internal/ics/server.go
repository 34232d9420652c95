package ics

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"schedbot/pkg/logx"
)

const basePath = "/timetable"

// ServerConfig controls the optional calendar HTTP listener.
type ServerConfig struct {
	Address string // default "127.0.0.1:8080"
	Root    string // the directory WriteGroupCalendar writes into
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Address == "" {
		c.Address = "127.0.0.1:8080"
	}
	return c
}

// Server publishes the per-group calendar files over HTTP:
//
//	GET /timetable             HTML index of published groups
//	GET /timetable/<gid>       text/calendar
//	GET /timetable/<gid>.ics   same
//
// Calendar responses carry an ETag over the file content, so polling
// calendar clients mostly get 304s. No auth, no CalDAV.
type Server struct {
	mu   sync.Mutex
	cfg  ServerConfig
	log  logx.Logger
	srv  *http.Server
	ln   net.Listener
	addr string
}

func NewServer(cfg ServerConfig, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg.withDefaults(), log: log}
}

// Start binds the listener and serves in the background. A bind failure is
// logged and swallowed: the watch loop and bot keep running without the
// calendar endpoint.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return
	}

	srv := &http.Server{Addr: s.cfg.Address, Handler: s.Handler()}
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		s.log.Warn("calendar listen failed", logx.String("addr", s.cfg.Address), logx.Err(err))
		return
	}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("calendar server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("calendar server listening", logx.String("addr", s.addr))
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	srv := s.srv
	ln := s.ln
	s.srv = nil
	s.ln = nil
	s.addr = ""

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("calendar shutdown error", logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
}

// Handler returns the route table. Exposed separately so tests can drive it
// without a real listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(basePath, s.handleIndex)
	mux.HandleFunc(basePath+"/", s.handleCalendar)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := s.groupNames()
	gids := s.publishedGroups()

	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"ru\">\n")
	b.WriteString("<head><meta charset=\"utf-8\"><title>Расписание — группы</title></head>\n<body>\n")
	b.WriteString("<h1>Доступные группы</h1>\n")
	if len(gids) == 0 {
		b.WriteString("<p>Нет опубликованных групп.</p>\n")
	} else {
		b.WriteString("<ul>\n")
		for _, gid := range gids {
			label := gid
			if name := names[gid]; name != "" {
				label = name
			}
			fmt.Fprintf(&b, "<li><a href=\"%s/%s.ics\">%s</a></li>\n",
				basePath, html.EscapeString(gid), html.EscapeString(label))
		}
		b.WriteString("</ul>\n")
	}
	b.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gid := strings.TrimPrefix(r.URL.Path, basePath+"/")
	gid = strings.TrimSuffix(gid, ".ics")
	if gid == "" || strings.ContainsAny(gid, "/\\") || strings.Contains(gid, "..") {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.Root, gid, "calendar.ics"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", etag)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// publishedGroups lists subdirectories of the root that currently hold a
// calendar file, sorted for stable output.
func (s *Server) publishedGroups() []string {
	dirs, err := os.ReadDir(s.cfg.Root)
	if err != nil {
		return nil
	}
	var out []string
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.cfg.Root, d.Name(), "calendar.ics")); err == nil {
			out = append(out, d.Name())
		}
	}
	sort.Strings(out)
	return out
}

// groupNames reads the groups.json index for display names; a missing or
// unreadable index just means bare ids on the landing page.
func (s *Server) groupNames() map[string]string {
	b, err := os.ReadFile(filepath.Join(s.cfg.Root, "groups.json"))
	if err != nil {
		return nil
	}
	var idx []GroupIndexEntry
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil
	}
	names := make(map[string]string, len(idx))
	for _, e := range idx {
		if e.ID != "" && e.Name != "" {
			names[e.ID] = e.Name
		}
	}
	return names
}
