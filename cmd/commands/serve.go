package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// parseConfig loads an optional .env file and parses the configuration
// from the environment and command line.
func parseConfig(cfg interface{}) (bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("loading .env file: %w", err)
	}
	const prefix = ""
	help, err := conf.Parse(prefix, cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return false, nil
		}
		return false, fmt.Errorf("parsing config: %w", err)
	}
	return true, nil
}

func Serve() error {
	cfg := AppConfig{}
	ok, err := parseConfig(&cfg)
	if !ok {
		return err
	}
	logLevel := zap.InfoLevel
	if cfg.Countyview.Debug {
		logLevel = zap.DebugLevel
	}
	log, err := createLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	handle, err := CreateServer(log, cfg)
	if err != nil {
		return err
	}
	defer handle.Close()

	// Start server
	go func() {
		if err := handle.Server.ListenAndServe(cfg.Web.APIHost); err != nil && err != http.ErrServerClosed {
			log.Fatalf("shutting down the server: %v", err)
		}
	}()
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("Received shutdown signal")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()
	if err := handle.Server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
	log.Sync()
	return nil
}

func createLogger(level zapcore.Level) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.Level.SetLevel(level)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	log := logger.Sugar()
	return log, nil
}
