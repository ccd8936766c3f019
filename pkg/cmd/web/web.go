package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/songseed/pkg/cache"
	"github.com/igolaizola/songseed/pkg/catalog"
	"github.com/igolaizola/songseed/pkg/ffmpeg"
	"github.com/igolaizola/songseed/pkg/locale"
	"github.com/igolaizola/songseed/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr        string
	BaseURL     string
	Credentials map[string]string
	Locales     string
	CacheSize   int
	FFmpeg      string
}

//go:embed static/*
var staticContent embed.FS

// Serve starts the catalog server.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	locales, err := locale.New(cfg.Locales)
	if err != nil {
		return fmt.Errorf("web: couldn't load locales: %w", err)
	}

	// The database is an optional second cache tier
	var artifacts cache.Store
	if cfg.DBType != "" {
		store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
		if err != nil {
			return fmt.Errorf("web: couldn't create orm store: %w", err)
		}
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("web: couldn't start orm store: %w", err)
		}
		defer func() { _ = store.Stop() }()
		artifacts = store
	}
	var c *cache.Cache
	if cfg.CacheSize > 0 {
		c = cache.New(int64(cfg.CacheSize)<<20, artifacts, cfg.Debug)
	}

	enc := ffmpeg.New(cfg.FFmpeg)
	if err := enc.Check(); err != nil {
		log.Println("web: mp3 export disabled:", err)
		enc = nil
	}
	svcCfg := &catalog.Config{
		Locales: locales,
		Cache:   c,
		BaseURL: cfg.BaseURL,
	}
	if enc != nil {
		svcCfg.Encoder = enc
	}
	svc := catalog.New(svcCfg)

	handler, err := NewHandler(svc, c, cfg)
	if err != nil {
		return err
	}

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: handler,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: couldn't shutdown server: %w", err)
	}
	return nil
}

// NewHandler returns the router of the catalog api and the static page.
func NewHandler(svc *catalog.Service, c *cache.Cache, cfg *Config) (http.Handler, error) {
	// Create static content
	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return nil, fmt.Errorf("web: couldn't load static content: %w", err)
	}

	// Create router
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))

	// Add BasicAuth middleware
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}

	// Create subrouter for api endpoints
	r := mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
	})

	// Handler to serve the static files
	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)

	r.Get("/api/locales", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Locales())
	})

	r.Get("/api/cache", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, c.Stats())
	})

	r.Get("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p := queryParser{values: q}
		req := catalog.PageRequest{
			Locale:   p.locale(),
			Seed:     p.seed(),
			Likes:    p.number("likes", 0),
			Page:     p.integer("page", 1),
			PageSize: p.integer("size", catalog.DefaultPageSize),
		}
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		page, err := svc.Page(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, page)
	})

	r.Get("/api/songs/{index}", func(w http.ResponseWriter, r *http.Request) {
		p := queryParser{values: r.URL.Query()}
		q := p.query(chi.URLParam(r, "index"))
		avg := p.number("likes", 0)
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		d, err := svc.Details(q, avg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, d)
	})

	r.Get("/api/songs/{index}/lyrics", func(w http.ResponseWriter, r *http.Request) {
		p := queryParser{values: r.URL.Query()}
		q := p.query(chi.URLParam(r, "index"))
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		lines, err := svc.Lyrics(q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, lines)
	})

	r.Get("/api/songs/{index}/cover", func(w http.ResponseWriter, r *http.Request) {
		p := queryParser{values: r.URL.Query()}
		q := p.query(chi.URLParam(r, "index"))
		size := p.integer("size", 0)
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		b, err := svc.Cover(r.Context(), q, size)
		if err != nil {
			writeError(w, err)
			return
		}
		writeBytes(w, "image/png", b)
	})

	r.Get("/api/songs/{index}/preview", func(w http.ResponseWriter, r *http.Request) {
		p := queryParser{values: r.URL.Query()}
		q := p.query(chi.URLParam(r, "index"))
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		b, err := svc.Preview(r.Context(), q, catalog.Mode(r.URL.Query().Get("mode")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeBytes(w, "audio/wav", b)
	})

	r.Get("/api/songs/{index}/waveform", func(w http.ResponseWriter, r *http.Request) {
		p := queryParser{values: r.URL.Query()}
		q := p.query(chi.URLParam(r, "index"))
		if p.err != nil {
			writeError(w, p.err)
			return
		}
		b, err := svc.Waveform(r.Context(), q, catalog.Mode(r.URL.Query().Get("mode")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeBytes(w, "image/png", b)
	})

	r.Post("/api/songs/export", func(w http.ResponseWriter, r *http.Request) {
		var req catalog.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: couldn't decode request: %v", catalog.ErrInvalidArgument, err))
			return
		}
		// Render to memory so errors can still be reported as json
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), req, &buf); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"songs-%d.zip\"", req.Seed))
		writeBytes(w, "application/zip", buf.Bytes())
	})

	return mux, nil
}

type queryParser struct {
	values map[string][]string
	err    error
}

func (p *queryParser) get(key string) string {
	if v := p.values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (p *queryParser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: invalid %s %q: %v", catalog.ErrInvalidArgument, key, v, err)
	}
}

func (p *queryParser) locale() string {
	if v := p.get("locale"); v != "" {
		return v
	}
	return "en-US"
}

func (p *queryParser) seed() uint64 {
	v := p.get("seed")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail("seed", v, err)
	}
	return n
}

func (p *queryParser) integer(key string, def int) int {
	v := p.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *queryParser) number(key string, def float64) float64 {
	v := p.get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
	}
	return n
}

func (p *queryParser) query(index string) catalog.Query {
	q := catalog.Query{Locale: p.locale(), Seed: p.seed()}
	n, err := strconv.Atoi(index)
	if err != nil {
		p.fail("index", index, err)
	}
	q.Index = n
	return q
}

type problem struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, catalog.ErrInvalidArgument) {
		status = http.StatusBadRequest
	} else {
		log.Println("web:", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("web: couldn't encode response:", err)
	}
}

func writeBytes(w http.ResponseWriter, contentType string, b []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(b); err != nil {
		log.Println("web: couldn't write response:", err)
	}
}
