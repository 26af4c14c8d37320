package realtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/director"
	"github.com/screener/screener-go/internal/video"
)

var (
	synthetic  bool
	saveConfig string
)

// Command creates the realtime switching command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the realtime auto-switching loop",
		Long:  "Start the motion detectors, auto-cut controller and transition engine against the configured sources.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Realtime.Export.Path, "clippath", viper.GetString("realtime.export.path"), "Path to save swing clips")
	cmd.Flags().BoolVar(&settings.Realtime.AutoCut.Enabled, "golfmode", viper.GetBool("realtime.autocut.enabled"), "Enable auto switching at startup")
	cmd.Flags().BoolVar(&settings.Realtime.Telemetry.Enabled, "telemetry", viper.GetBool("realtime.telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Realtime.Telemetry.Listen, "listen", viper.GetString("realtime.telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Feed synthetic frames instead of waiting for a capture integration")
	cmd.Flags().StringVar(&saveConfig, "saveconfig", "", "Write the effective configuration to the given file and exit")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

func runRealtime(settings *conf.Settings) error {
	if saveConfig != "" {
		if err := conf.SaveYAMLConfig(saveConfig, settings); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("configuration written to %s\n", saveConfig)
		return nil
	}

	d, err := director.New(settings, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize director: %w", err)
	}

	if synthetic {
		vid := settings.Realtime.Video
		golfer := video.NewSyntheticSource(vid.GolferSource, vid.Width, vid.Height, vid.FPS).
			WithMotionBursts(600, 10)
		sim := video.NewSyntheticSource(vid.SimulatorSource, vid.Width, vid.Height, vid.FPS)
		d.AttachSources(golfer, sim)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}
