// The relay is the one endpoint the site controls: it forwards chat
// completion bodies to the model API with the secret key attached and
// enforces CORS for the widget's origin. It holds no state.
package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"edge-analyst/internal/api"
	"edge-analyst/internal/config"
)

const anthropicVersion = "2023-06-01"

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.AnthropicAPIKey == "" {
		log.Fatal("ANTHROPIC_API_KEY is required")
	}

	client := &http.Client{Timeout: 2 * time.Minute}

	r := chi.NewRouter()
	r.Use(api.CORS(cfg.AllowedOrigins))
	r.Post("/", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		upstream, err := http.NewRequestWithContext(req.Context(),
			http.MethodPost, cfg.AnthropicURL, bytes.NewReader(body))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		upstream.Header.Set("Content-Type", "application/json")
		upstream.Header.Set("x-api-key", cfg.AnthropicAPIKey)
		upstream.Header.Set("anthropic-version", anthropicVersion)

		resp, err := client.Do(upstream)
		if err != nil {
			log.Printf("upstream call failed: %v", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	})

	port := os.Getenv("RELAY_PORT")
	if port == "" {
		port = "8787"
	}
	log.Printf("relay listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
