package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"cardvault/internal/auth"
	"cardvault/internal/cardcache"
	"cardvault/internal/events"
	"cardvault/internal/flight"
	"cardvault/internal/meta"
	"cardvault/internal/scryfall"
	"cardvault/pkg/database"
	"cardvault/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	cacheCfg := utils.LoadCacheConfig()
	srvCfg := utils.LoadServerConfig()

	hub := events.NewHub()
	cache, err := cardcache.New(cardcache.Config{
		DataDir: cacheCfg.DataDir,
		Client:  scryfall.NewClient(cacheCfg.BaseURL, cacheCfg.UserAgent, cacheCfg.RPS, cacheCfg.Retries),
		Meta:    meta.NewRepo(db),
		MaxAge:  cacheCfg.MaxAge,
		Cluster: flight.NewPgLocker(cacheCfg.PgLockDSN),
		Hub:     hub,
	})
	if err != nil {
		log.Fatalf("cache init failed: %v", err)
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", events.WSHandler(hub, cache.Epoch))
	tcpSrv := events.NewServer(srvCfg.EventAddr, hub, cache.Epoch)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path, "data_dir": cacheCfg.DataDir})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		if !cache.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"cache":  "loading",
				"epoch":  cache.Epoch(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"epoch":       cache.Epoch(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":          dbCfg.Path,
			"data_dir":    cacheCfg.DataDir,
			"stats":       cache.Stats(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Card lookups (public, localhost-only deployment)
	handler := cardcache.NewHandler(cache)
	handler.RegisterRoutes(router.Group("/"))

	// Admin (manual sync trigger)
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.Secret),
		Issuer:   authCfg.Issuer,
		Duration: authCfg.Duration,
	}
	handler.RegisterAdminRoutes(router.Group("/"), tokenSvc)

	// Background load: serve immediately from disk when possible, fetch
	// otherwise. Readers get 503s until the first publish.
	loadCtx, loadCancel := context.WithCancel(context.Background())
	defer loadCancel()
	go func() {
		for _, kind := range []string{cardcache.KindDefaultCards, cardcache.KindRulings} {
			if err := cache.LoadIfStale(loadCtx, kind); err != nil {
				log.Printf("[startup] load %s: %v", kind, err)
			}
		}
	}()
	if srvCfg.RefreshEvery > 0 {
		go refreshLoop(loadCtx, cache, srvCfg.RefreshEvery)
	}

	httpSrv := &http.Server{
		Addr:    srvCfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP cache server listening on %s", srvCfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	loadCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}

func refreshLoop(ctx context.Context, cache *cardcache.Cache, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, kind := range []string{cardcache.KindDefaultCards, cardcache.KindRulings} {
				if res, err := cache.Sync(ctx, kind, false, nil); err != nil {
					log.Printf("[refresh] %s: %v", kind, err)
				} else {
					log.Printf("[refresh] %s: %s (epoch %d)", kind, res.Status, res.Epoch)
				}
			}
		}
	}
}
