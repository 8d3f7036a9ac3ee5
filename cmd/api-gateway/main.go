package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/radieske/bolao-platform/internal/shared/config"
	"github.com/radieske/bolao-platform/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	lotteryURL := os.Getenv("LOTTERY_URL")
	if lotteryURL == "" {
		lotteryURL = "http://localhost:8084"
	}
	authURL := os.Getenv("AUTH_URL")
	if authURL == "" {
		authURL = "http://localhost:8090"
	}
	pixURL := os.Getenv("PIX_URL")
	if pixURL == "" {
		pixURL = "http://localhost:8085"
	}
	lottery := rp(lotteryURL)
	authp := rp(authURL)
	pix := rp(pixURL)

	mux := http.NewServeMux()

	// bolão (ex.: /api/bolao/v1/contests/open -> lottery-service)
	mux.Handle("/api/bolao/", http.StripPrefix("/api/bolao", lottery))

	// identidade (ex.: /api/auth/v1/verify -> provedor de identidade)
	mux.Handle("/api/auth/", http.StripPrefix("/api/auth", authp))

	// PIX (ex.: /api/pix/payments -> pix-simulator; só em ambiente local)
	if cfg.Env == "local" {
		mux.Handle("/api/pix/", http.StripPrefix("/api/pix", pix))
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("gateway", zap.Error(err))
	}
}
