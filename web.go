/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, log *zap.SugaredLogger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("khawawish v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		log.Debugf("SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func newRouter(cfg *Config, hub *Hub, uploadDir string, errs chan<- error) *httprouter.Router {
	log := hub.log
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Errorf("SERVE: Panic serving %s to %s: %v", r.URL.Path, realIP(r), i)
		writeError(cfg, w, http.StatusInternalServerError, "An error has occurred. Please try again.")
	}

	mux.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(cfg, w, http.StatusNotFound, "Not Found")
	})

	p := cfg.prefix

	mux.POST(p+"/auth/register", serveRegister(hub))
	mux.POST(p+"/auth/login", serveLogin(hub))
	mux.GET(p+"/auth/me", authed(hub, serveMe(hub)))
	mux.POST(p+"/auth/edit", authed(hub, serveEdit(hub)))

	mux.GET(p+"/user/:username", serveUser(hub))
	mux.GET(p+"/search/users", serveSearch(hub))
	mux.GET(p+"/leaderboard", serveLeaderboard(hub))

	mux.POST(p+"/upload", authed(hub, serveUpload(hub, uploadDir)))
	mux.GET(p+"/static/uploads/:name", serveUploaded(cfg, log, uploadDir, errs))

	mux.GET(p+"/images", serveImageSample(hub))
	mux.GET(p+"/static/images/:name", serveImage(cfg, log, hub.catalog, errs))

	mux.GET(p+"/lobbies", serveLobbies(hub))
	mux.GET(p+"/lobbies/:id", serveLobby(hub))
	mux.GET(p+"/lobbies/:id/qr", qrHandler(hub))

	mux.GET(p+"/ws/game", serveGameSocket(hub))

	mux.GET(p+"/healthz", serveHealthCheck(cfg, errs))
	mux.GET(p+"/robots.txt", serveRobots(cfg, errs))
	mux.GET(p+"/version", serveVersion(cfg, log, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, log, mux)
	}

	return mux
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Sugar()

	log.Infof("START: khawawish v%s", releaseVersion)

	accounts, err := newAccounts([]byte(cfg.jwtSecret), cfg.tokenTTL)
	if err != nil {
		return err
	}
	if cfg.jwtSecret == "" {
		log.Warn("START: No --jwt-secret set, issued tokens will not survive a restart")
	}

	catalog, err := loadCatalog(cfg.imageDir)
	if err != nil {
		return err
	}
	log.Infof("START: Serving %d character images", catalog.Len())

	uploadDir := cfg.uploadDir
	if uploadDir == "" {
		uploadDir, err = os.MkdirTemp("", "khawawish-uploads-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(uploadDir)
	} else if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return err
	}

	hub := newHub(cfg, logger, accounts, catalog)

	done := make(chan struct{})
	defer close(done)

	go hub.reaperLoop(done)

	errs := make(chan error, 64)
	go func() {
		for {
			select {
			case <-done:
				return
			case err := <-errs:
				log.Debugf("SERVE: Write failed: %v", err)
			}
		}
	}()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, hub, uploadDir, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Infof("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			listenErr <- srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			listenErr <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("SERVE: Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
