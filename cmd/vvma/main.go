package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/abigailajohn/VVMA/internal/config"
	"github.com/abigailajohn/VVMA/internal/db"
	"github.com/abigailajohn/VVMA/internal/groups"
	"github.com/abigailajohn/VVMA/internal/http/api"
	"github.com/abigailajohn/VVMA/internal/mail"
	"github.com/abigailajohn/VVMA/internal/otp"
	"github.com/abigailajohn/VVMA/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	log "github.com/sirupsen/logrus"
)

// main runs the API server and exits on unrecoverable errors.
func main() {
	if errRun := run(context.Background(), os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("server failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, wires dependencies, and serves.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vvma", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	appCfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*cfgPath) != "" {
		appCfg.ConfigPath = config.ResolveConfigPath(*cfgPath)
	}
	configPath := appCfg.ConfigPath

	dsn, errDSN := config.LoadDatabaseDSN(configPath)
	if errDSN != nil {
		return errDSN
	}
	jwtCfg, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` in config file or env %s)", config.EnvJWTSecret)
	}
	smtpCfg, errSMTP := config.LoadSMTPConfig(configPath)
	if errSMTP != nil {
		return errSMTP
	}
	redisCfg, errRedis := config.LoadRedisConfig(configPath)
	if errRedis != nil {
		return errRedis
	}
	serverCfg, errServer := config.LoadServerConfig(configPath)
	if errServer != nil {
		return errServer
	}
	if *port > 0 {
		if *port > 65535 {
			return fmt.Errorf("invalid port: %d", *port)
		}
		serverCfg.Port = *port
	}

	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.WithField("dialect", db.DialectName(conn)).Info("database ready")

	var otpStore otp.Store = otp.NewMemoryStore()
	var limiter *ratelimit.Manager
	if redisCfg.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if errPing := client.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warn("redis unreachable at startup, continuing")
		}
		otpStore = otp.NewRedisStore(client, redisCfg.Prefix, nil)
		limiter = ratelimit.NewManager(client, redisCfg.Prefix, nil)
	} else {
		limiter = ratelimit.NewManager(nil, "", nil)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, api.Deps{
		DB:      conn,
		JWT:     jwtCfg,
		BaseURL: serverCfg.BaseURL,
		Engine:  groups.NewEngine(conn),
		OTP:     otp.NewManager(otpStore, nil),
		Limiter: limiter,
		Mailer:  mail.NewSMTPMailer(smtpCfg),
	})

	addr := fmt.Sprintf(":%d", serverCfg.Port)
	log.WithField("addr", addr).Info("listening")
	return engine.Run(addr)
}
