package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"staffhub.org/internal/auth"
	"staffhub.org/internal/httpapi"
	"staffhub.org/internal/obs"
	"staffhub.org/internal/policy"
	"staffhub.org/internal/ratelimit"
	"staffhub.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "none"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("STAFFHUB_AUTH_SECRET")
	if secret == "" {
		log.Fatal("missing STAFFHUB_AUTH_SECRET")
	}

	var tokenOpts []auth.TokenOption
	if ttl := envDuration("STAFFHUB_ACCESS_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := envDuration("STAFFHUB_REFRESH_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithRefreshTTL(ttl))
	}
	if os.Getenv("STAFFHUB_AUTH_PERMISSIVE") == "1" {
		tokenOpts = append(tokenOpts, auth.Permissive())
	}
	tokens, err := auth.NewTokenService(secret, tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	dsn := os.Getenv("STAFFHUB_PG_DSN")
	if dsn == "" {
		log.Fatal("missing STAFFHUB_PG_DSN")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	authSvc := auth.NewService(store.Users(), tokens)

	limits := map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin:   envLimit("STAFFHUB_RATE_LOGIN", ratelimit.DefaultLoginLimit),
		ratelimit.ClassGeneral: envLimit("STAFFHUB_RATE_API", ratelimit.DefaultGeneralLimit),
	}
	limiter, err := ratelimit.New(limits)
	if err != nil {
		log.Fatalf("rate limiter: %v", err)
	}

	pol := policy.New(store.Employees(), store.Departments(), store.Projects(), store.Tasks(), store.Memberships())

	if err := bootstrapAdmin(authSvc); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, authSvc, tokens, limiter, pol, httpapi.Stores{
		Employees:   store.Employees(),
		Departments: store.Departments(),
		Projects:    store.Projects(),
		Tasks:       store.Tasks(),
		Memberships: store.Memberships(),
	})

	addr := os.Getenv("STAFFHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting staffhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// bootstrapAdmin creates the initial SYSTEM_ADMIN account when
// STAFFHUB_ADMIN_USERNAME and STAFFHUB_ADMIN_PASSWORD are set. Further
// accounts come through /api/auth/register. Idempotent across restarts.
func bootstrapAdmin(svc *auth.Service) error {
	username := os.Getenv("STAFFHUB_ADMIN_USERNAME")
	password := os.Getenv("STAFFHUB_ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := svc.Register(ctx, username, password, auth.RoleSystemAdmin)
	if errors.Is(err, auth.ErrAlreadyExists) {
		return nil
	}
	return err
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}

// envLimit reads <prefix>_REQUESTS and <prefix>_WINDOW, falling back to
// def for any unset part.
func envLimit(prefix string, def ratelimit.Limit) ratelimit.Limit {
	out := def
	if v := os.Getenv(prefix + "_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("%s_REQUESTS: invalid value %q", prefix, v)
		}
		out.Requests = n
	}
	if d := envDuration(prefix + "_WINDOW"); d > 0 {
		out.Window = d
	}
	return out
}
