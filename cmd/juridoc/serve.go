package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/urfave/negroni"

	"github.com/juridoc/juridoc/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document QA HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.sessions.StartCleanup(24*time.Hour, time.Hour)
		defer a.sessions.StopCleanup()

		srvCfg := server.Config{
			Domains:      a.cfg.Domains,
			CertCacheDir: a.cfg.CertCacheDir,
			HTTPPort:     a.cfg.HTTPPort,
			HTTPSPort:    a.cfg.HTTPSPort,
			DataDir:      a.cfg.DataDir,
			MaxUpload:    a.cfg.MaxUploadBytes,
		}

		r := server.SetupRoutes(srvCfg, a.logger, a.extractor, a.ops, a.sessions)
		n := setupNegroni(r)

		if a.cfg.Environment == "production" {
			server.ServeProduction(n, srvCfg)
		} else {
			srv := &http.Server{
				Addr:        ":" + a.cfg.HTTPPort,
				Handler:     n,
				IdleTimeout: time.Minute,
				ReadTimeout: 30 * time.Second,
				// Model completions routinely take tens of seconds.
				WriteTimeout: 5 * time.Minute,
			}
			server.ServeDevelopment(srv)
		}
		return nil
	},
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
