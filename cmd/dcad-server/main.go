package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"dcad-backend/internal/service"
	"dcad-backend/internal/telemetry"
	"dcad-backend/lib/configutil"
	libtelemetry "dcad-backend/lib/telemetry"
	"dcad-backend/lib/util/serviceutil"

	"github.com/gin-gonic/gin"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	libtelemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := libtelemetry.SetupFromEnv(ctx, "dcad-server")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no telemetry.json5 found, exporters disabled")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		tel.Shutdown(context.Background())
	}()
	libtelemetry.InstrumentPerfStats(ctx)
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	port := flag.Int("port", 8080, "The port to listen on.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	err := configutil.LoadDotenv()
	if err != nil {
		slog.Warn("failed to load .env", "err", err)
	}
	InitTelemetry(ctx, *verbose)

	cfg, err := service.ReadConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	components, err := service.Open(ctx, cfg, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("open components", err)
	}
	defer components.Close()

	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := NewRouter(components.Service)

	err = serviceutil.StartHttpServer(ctx, *port, router)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
