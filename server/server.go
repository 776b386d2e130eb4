package server

import (
	"crypto/tls"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"

	"github.com/juridoc/juridoc/handlers"
	"github.com/juridoc/juridoc/ops"
	"github.com/juridoc/juridoc/services/extract_service"
	"github.com/juridoc/juridoc/session"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	DataDir      string
	MaxUpload    int64
}

func SetupRoutes(cfg Config, logger *slog.Logger, extractor *extract_service.DocumentExtractor, opsService *ops.Service, sessions *session.Store) *mux.Router {
	r := mux.NewRouter()

	uploadHandler := handlers.NewUploadHandler(logger, extractor, opsService, sessions, cfg.DataDir, cfg.MaxUpload)
	r.Handle("/upload", uploadHandler).Methods("POST")

	askHandler := handlers.NewAskHandler(logger, extractor, opsService, sessions, cfg.DataDir)
	r.Handle("/ask", askHandler).Methods("POST")

	return r
}

// ServeProduction starts the server behind autocert-managed TLS.
func ServeProduction(n *negroni.Negroni, cfg Config) {
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Port 80 serves ACME "http-01" challenges and redirects everything
	// else to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	tlsConfig := &tls.Config{
		GetCertificate:           autocertManager.GetCertificate,
		PreferServerCipherSuites: true,
		CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPSPort,
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	err := srv.ListenAndServeTLS("", "") // Key and cert provided automatically by autocert.
	log.Fatal(err)
}

// ServeDevelopment starts the plain HTTP server used outside production.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
