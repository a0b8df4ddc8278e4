package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/khaledhikmat/vs-live/mode"
	"github.com/khaledhikmat/vs-live/pipeline"
	"github.com/khaledhikmat/vs-live/service/analysis"
	"github.com/khaledhikmat/vs-live/service/camera"
	"github.com/khaledhikmat/vs-live/service/camera/opencv"
	"github.com/khaledhikmat/vs-live/service/config"
	"github.com/khaledhikmat/vs-live/service/data"
	"github.com/khaledhikmat/vs-live/service/lgr"
	"github.com/khaledhikmat/vs-live/service/storage"
	"github.com/khaledhikmat/vs-live/service/webhook"
)

// Has to be bigger than the mode processor shutdown time
const shutdownGrace = 3 * time.Second

var liveOpts mode.LiveOptions

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the live detection agent and its control surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := newServices(cfgSvc)
		if err != nil {
			return err
		}
		return runMode(cmd.Context(), mode.Live(liveOpts), svcs)
	},
}

func init() {
	liveCmd.Flags().BoolVar(&liveOpts.StartCamera, "start", false, "open the camera on startup")
	liveCmd.Flags().BoolVar(&liveOpts.Detect, "detect", false, "open the camera and start detection on startup")
	liveCmd.Flags().BoolVar(&liveOpts.Serve, "serve", true, "expose the HTTP control surface on LISTEN_ADDRESS")
	rootCmd.AddCommand(liveCmd)
}

// newServices creates the services needed for the mode processor
func newServices(cfgSvc config.IService) (pipeline.ServicesFactory, error) {
	var cameraSvc camera.IService
	switch cfgSvc.GetCameraType() {
	case config.CameraTypeRandom:
		cameraSvc = camera.NewRandom()
	default:
		cameraSvc = opencv.New()
	}

	storageSvc, err := storage.New(cfgSvc)
	if err != nil {
		return pipeline.ServicesFactory{}, err
	}

	return pipeline.ServicesFactory{
		CfgSvc:      cfgSvc,
		DataSvc:     data.NewFilesDB(cfgSvc),
		CameraSvc:   cameraSvc,
		AnalysisSvc: analysis.NewHTTP(cfgSvc),
		StorageSvc:  storageSvc,
		WebhookSvc:  webhook.New(cfgSvc),
	}, nil
}

func runMode(ctx context.Context, modeProc mode.Processor, svcs pipeline.ServicesFactory) error {
	canxCtx, canxFn := context.WithCancel(ctx)
	defer canxFn()

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, pipeline.SimpleAlerter)
	}()

	// Wait for cancellation or the mode processor
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"live agent context cancelled",
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Error(
				"live agent mode processor exited",
				slog.Any("error", lgr.Err(err)),
			)
		}
		return err
	}

	lgr.Logger.Info(
		"live agent is waiting for all go routines to exit",
	)

	// The mode processor has its own shutdown window; this only bounds it
	waitOnShutdown := svcs.CfgSvc.GetModeMaxShutdownTime() + shutdownGrace
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"live agent shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return nil

	case err := <-modeProcResult:
		return err
	}
}
