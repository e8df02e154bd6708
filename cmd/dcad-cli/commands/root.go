package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dcad-backend/internal/service"
	"dcad-backend/internal/telemetry"
	"dcad-backend/lib/configutil"
	libtelemetry "dcad-backend/lib/telemetry"
	"dcad-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "dcad-cli",
	Short: "dcad-cli extracts, scrapes and stores Dallas Central Appraisal District property records.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(*verbose)
		err := configutil.LoadDotenv()
		if err != nil {
			slog.Warn("failed to load .env", "err", err)
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openComponents reads the config and wires every component a command that
// touches the network or the database needs. The returned func releases them.
func openComponents(ctx context.Context) (service.Config, service.Components, func()) {
	tel, err := libtelemetry.SetupFromEnv(ctx, "dcad-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		serviceutil.Fatal("setup telemetry", err)
	}

	cfg, err := service.ReadConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	components, err := service.Open(ctx, cfg, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("open components", err)
	}
	return cfg, components, func() {
		components.Close()
		tel.Shutdown(context.Background())
	}
}
