package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// PathPrefix - запросы с этим префиксом уходят в Ollama без префикса.
const PathPrefix = "/proxy-ollama/"

// NewLogger настраивает zerolog: читаемый вывод вне production, JSON в production.
func NewLogger(appEnv, level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(out)
	if appEnv != "production" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

// Server пробрасывает запросы клиента в Ollama и отдает статику клиента.
type Server struct {
	target    *url.URL
	staticDir string
	proxy     *httputil.ReverseProxy
	logger    zerolog.Logger
}

func New(ollamaURL, staticDir string, logger zerolog.Logger) (*Server, error) {
	target, err := url.Parse(ollamaURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid ollama url '%s'", ollamaURL)
	}
	s := &Server{
		target:    target,
		staticDir: staticDir,
		logger:    logger.With().Str("component", "OllamaProxy").Logger(),
	}
	s.proxy = &httputil.ReverseProxy{
		Rewrite:      s.rewrite,
		ErrorHandler: s.proxyError,
		// потоковые ответы /api/generate отдаются клиенту сразу
		FlushInterval: -1,
	}
	return s, nil
}

func (s *Server) rewrite(r *httputil.ProxyRequest) {
	r.SetURL(s.target)
	path := strings.TrimPrefix(r.In.URL.Path, strings.TrimSuffix(PathPrefix, "/"))
	r.Out.URL.Path = singleJoin(s.target.Path, path)
	r.Out.URL.RawPath = ""
	r.Out.Host = s.target.Host
	// CORS выставляет сам прокси
	r.Out.Header.Del("Origin")
}

func singleJoin(a, b string) string {
	switch {
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/"):
		return a + "/" + b
	}
	return a + b
}

func (s *Server) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to reach Ollama")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "failed to reach Ollama"})
}

// Handler возвращает роутер с CORS и логированием.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.PathPrefix(PathPrefix).Methods(http.MethodGet, http.MethodPost).Handler(s.proxy)
	router.PathPrefix("/").Methods(http.MethodGet, http.MethodHead).Handler(http.FileServer(http.Dir(s.staticDir)))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	})
	return c.Handler(router)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("Request completed")
	})
}
