// authctl drives the session façade against the configured Postgres (and
// optional Redis) stores. Credentials given on the command line are sealed
// with CREDENTIAL_KEY before they reach the façade, as a client would send them.
//
//	authctl join -phone 01012345678 -password secret -role partner -name Kim -email kim@example.com -license-no 11-22-333333-44 -device-name phone -device-id hw-1 -push tok
//	authctl login -phone 01012345678 -password secret -device-name phone -device-id hw-1 -push tok
//	authctl set-device-limit -limit 5
//	authctl deactivate -phone 01012345678
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	authservice "transapp-auth/internal/auth/service"
	"transapp-auth/internal/config"
	"transapp-auth/internal/credential"
	"transapp-auth/internal/db"
	deviceservice "transapp-auth/internal/device/service"
	"transapp-auth/internal/policy/engine"
	"transapp-auth/internal/registry"
	roleservice "transapp-auth/internal/role/service"
	"transapp-auth/internal/security"
	sessiontokenrepo "transapp-auth/internal/sessiontoken/repository"
	tokenservice "transapp-auth/internal/sessiontoken/service"
	"transapp-auth/internal/store"
	"transapp-auth/internal/telemetry"
	telemetryotel "transapp-auth/internal/telemetry/otel"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	os.Exit(execute())
}

// execute wires the façade and runs one command. Deferred cleanup runs before
// main exits with the returned code.
func execute() int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	key, err := cfg.CredentialKeyBytes()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	box, err := security.NewBox(key)
	if err != nil {
		log.Fatalf("credential box: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.OTELServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration+5*time.Second)
		defer cancel()
		time.Sleep(drainDelay(cfg))
		_ = providers.Shutdown(shutdownCtx)
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var opts []store.PostgresOption
	if cfg.SessionTokenBackend == config.SessionTokensRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		opts = append(opts, store.WithSessionTokens(sessiontokenrepo.NewRedisRepository(rdb, sessiontokenrepo.DefaultKeyPrefix)))
	}
	st := store.NewPostgresStore(pool, opts...)

	evaluator, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	if err := evaluator.HealthCheck(ctx); err != nil {
		log.Fatalf("policy: health check: %v", err)
	}
	tokens := tokenservice.NewManager()
	roles := roleservice.NewResolver()
	limits := registry.NewDeviceLimits(cfg.DefaultDeviceLimit)
	svc := authservice.NewService(
		st,
		credential.NewGate(box, security.NewHasher(cfg.BcryptCost)),
		deviceservice.NewRegistry(limits, tokens),
		tokens,
		roles,
		roleservice.NewFeatureGate(roles, evaluator),
		limits,
		authservice.WithEventEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider)),
		authservice.WithProduction(cfg.Production()),
	)

	return run(ctx, &cli{svc: svc, box: box, out: os.Stdout}, os.Args[1:])
}

// drainDelay gives in-flight async auth events time to reach the exporter.
func drainDelay(cfg *config.Config) time.Duration {
	if cfg.OTLPEndpoint == "" {
		return 0
	}
	return telemetry.ShutdownDrainDuration
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:", commandNames())
}
