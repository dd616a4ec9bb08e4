package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	logrustash "github.com/bshuster-repo/logrus-logstash-hook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"myfeedsave/auth"
	"myfeedsave/config"
	"myfeedsave/database"
	"myfeedsave/handlers"
	"myfeedsave/media"
	"myfeedsave/middleware"
	"myfeedsave/services"
)

var logger = logrus.New()

func main() {
	if err := run(); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func run() error {
	var configPath, port string
	pflag.StringVar(&configPath, "config", "", "path to a YAML config file (or set MYFEEDSAVE_CONFIG)")
	pflag.StringVar(&port, "port", "", "port to listen on, overrides config and PORT")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLogs, err := initLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	pictures, err := media.NewPictureStore(cfg.Uploads.PictureDir)
	if err != nil {
		return err
	}
	postMedia, err := media.NewPostStore(cfg.Uploads.PostDir)
	if err != nil {
		return err
	}

	api := &handlers.API{
		Accounts:  services.NewAccounts(store, tokens, pictures, postMedia, logger),
		Friends:   services.NewFriends(store, logger),
		Posts:     services.NewPosts(store, postMedia, logger),
		Messages:  services.NewMessages(store, logger),
		Pictures:  pictures,
		PostMedia: postMedia,
		Tokens:    tokens,
		Metrics:   middleware.InitMetrics(),
		Log:       logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Server.Port, "store": cfg.Store.Driver}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownAfter())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initLogger configures the package logger. The returned func closes the
// Logstash connection, if any.
func initLogger(cfg config.LogConfig) (func(), error) {
	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)

	if cfg.Logstash == "" {
		return func() {}, nil
	}
	conn, err := net.DialTimeout("tcp", cfg.Logstash, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to logstash: %w", err)
	}
	logger.AddHook(logrustash.New(conn, logrustash.DefaultFormatter(logrus.Fields{"type": "myfeedsave"})))
	return func() { conn.Close() }, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (database.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		logger.WithFields(logrus.Fields{"database": cfg.Mongo.Database, "transactions": cfg.Mongo.Transactions}).Info("Connecting to MongoDB")
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return database.OpenMongo(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Transactions)
	default:
		logger.WithFields(logrus.Fields{"path": cfg.SQLite.Path}).Info("Opening SQLite database")
		return database.OpenSQLite(ctx, cfg.SQLite.Path)
	}
}
