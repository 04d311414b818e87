package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kplw-group/proposal-cli/internal/orchestrator"
	"github.com/kplw-group/proposal-cli/internal/store"
	"github.com/kplw-group/proposal-cli/internal/template"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RFP run API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newAPIRouter(env.Service),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newAPIRouter builds the HTTP API over the run service.
func newAPIRouter(svc *orchestrator.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/templates", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, template.List())
	})

	r.Route("/api/rfp", func(r chi.Router) {
		r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				DocumentPaths []string `json:"document_paths"`
				Template      string   `json:"template"`
				OutputFormats []string `json:"output_formats"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if len(body.DocumentPaths) == 0 {
				writeError(w, http.StatusBadRequest, "document_paths is required")
				return
			}
			if body.Template == "" {
				body.Template = "corporate"
			}

			id, err := svc.StartRun(req.Context(), body.DocumentPaths, body.Template, body.OutputFormats)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{"project_id": id})
		})

		r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
			views, err := svc.ListRuns(req.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, views)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			view, err := svc.GetState(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		})

		r.Get("/runs/{id}/compliance", func(w http.ResponseWriter, req *http.Request) {
			matrix, err := svc.GetComplianceMatrix(req.Context(), chi.URLParam(req, "id"))
			if eris.Is(err, orchestrator.ErrNotReady) {
				writeError(w, http.StatusConflict, "compliance matrix not ready")
				return
			}
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, matrix)
		})

		r.Get("/runs/{id}/costs", func(w http.ResponseWriter, req *http.Request) {
			summary, err := svc.GetCostSummary(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, summary)
		})

		r.Delete("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			if err := svc.DeleteRun(req.Context(), chi.URLParam(req, "id")); err != nil {
				writeStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
