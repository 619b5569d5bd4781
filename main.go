package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow/api"
	"taskflow/realtime"
	"taskflow/storage"
)

func main() {
	_ = godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	mongoURI := os.Getenv("MONGODB_URI")
	dbName := os.Getenv("MONGODB_DATABASE")
	if mongoURI == "" {
		log.Fatal("missing mongo config")
	}
	if dbName == "" {
		dbName = "taskflow"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.New(ctx, mongoURI, dbName)
	cancel()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close(context.Background())

	auth, err := buildAuth()
	if err != nil {
		log.Fatal(err)
	}

	logger := log.New()
	hub := realtime.NewHub()

	// With redis configured, events round-trip through a pub/sub channel so
	// every process in the deployment fans them out to its own sockets.
	// Without it the hub delivers locally.
	var pub realtime.Publisher = hub
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc := redis.NewClient(parseRedisOptions(redisConn))
		channel := os.Getenv("REDIS_EVENT_CHANNEL")
		if channel == "" {
			channel = "taskflow:events"
		}
		bridge := realtime.NewBridge(rc, channel, hub, logger)
		go bridge.Run(context.Background())
		pub = bridge
	}
	dispatcher := realtime.NewDispatcher(pub, logger, realtime.DispatcherConfig{})
	defer dispatcher.Close()

	coord := api.NewCoordinator(store, dispatcher, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("taskflow"))
	e.GET("/metrics", echoprometheus.NewHandler())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, store, auth, coord, hub, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// buildAuth selects between locally signed tokens and an external JWKS
// issuer, driven by which config is present.
func buildAuth() (*api.Auth, error) {
	if domain := os.Getenv("AUTH_JWKS_DOMAIN"); domain != "" {
		audience := os.Getenv("AUTH_JWKS_AUDIENCE")
		if audience == "" {
			return nil, fmt.Errorf("missing AUTH_JWKS_AUDIENCE")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return api.NewJWKSAuth(jwks, audience, "https://"+domain+"/"), nil
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	ttl := 30 * 24 * time.Hour
	if v := os.Getenv("JWT_EXPIRE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid JWT_EXPIRE: %v", err)
		}
		ttl = d
	}
	return api.NewAuth([]byte(secret), ttl), nil
}

// parseRedisOptions accepts a redis URL, falling back to the
// comma-separated host,key=value form used by managed caches.
func parseRedisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
