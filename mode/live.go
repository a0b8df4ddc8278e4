package mode

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/khaledhikmat/vs-live/api"
	"github.com/khaledhikmat/vs-live/pipeline"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

const tracerName = "vs-live/pipeline"

type LiveOptions struct {
	// StartCamera opens the camera as soon as the agent is up.
	StartCamera bool
	// Detect also turns processing on. Suspects may already be registered with the backend,
	// so the local suspect list is not consulted.
	Detect bool
	// Serve exposes the control surface.
	Serve bool
}

// Live runs the detection agent and, optionally, its control surface until canxCtx is cancelled.
func Live(opts LiveOptions) Processor {
	return func(canxCtx context.Context, svcs pipeline.ServicesFactory, alerter pipeline.Alerter) error {
		// Create an error stream
		errorStream := make(chan interface{})

		// Create the stats stream
		statsStream := make(chan interface{})

		// Alerter functions must comply with Alerter signature (check pipeline/type.go)
		alertStream := alerter(canxCtx, svcs, errorStream, statsStream)

		// The agent gets its own context so that its final stats can still be
		// drained after canxCtx is cancelled
		agentCanxCtx, agentCanxFn := context.WithCancel(context.Background())
		defer agentCanxFn()
		// Spans go to whatever provider is registered globally, a no-op one by default
		agent := pipeline.NewAgent(agentCanxCtx, svcs, errorStream, statsStream, alertStream,
			pipeline.WithTracer(otel.Tracer(tracerName)))

		var server *api.Server
		serverErr := make(chan error, 1)
		if opts.Serve {
			server = api.New(svcs.CfgSvc, agent, svcs.AnalysisSvc)
			go func() {
				serverErr <- server.Listen(svcs.CfgSvc.GetListenAddress())
			}()
		}

		if opts.StartCamera || opts.Detect {
			go func() {
				if err := startAgent(canxCtx, agent, opts.Detect); err != nil {
					lgr.Logger.Error(
						"error starting the agent",
						slog.Any("error", err),
					)
				}
			}()
		}

		var runErr error

		// Wait for cancellation, server failure, stats or errors
		for {
			select {
			case <-canxCtx.Done():
				lgr.Logger.Info(
					"live mode context cancelled",
				)
				goto resume

			case err := <-serverErr:
				if err != nil {
					runErr = err
					lgr.Logger.Error(
						"control surface stopped",
						slog.Any("error", err),
					)
				}
				goto resume

			case s := <-statsStream:
				procStats(svcs.DataSvc, s)

			case e := <-errorStream:
				procError(svcs.DataSvc, e)
			}
		}

		// Stop the agent and the control surface while still draining the streams
		// because both report stats and errors as they exit
	resume:
		lgr.Logger.Info(
			"live mode is waiting for the agent to stop",
		)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)

			agent.Close()
			if server == nil {
				return
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), svcs.CfgSvc.GetModeMaxShutdownTime())
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				lgr.Logger.Warn(
					"control surface shutdown failed",
					slog.Any("error", err),
				)
			}
		}()

		timer := time.NewTimer(svcs.CfgSvc.GetModeMaxShutdownTime())
		defer timer.Stop()

		for {
			select {
			case <-stopped:
				lgr.Logger.Info(
					"live mode stopped",
				)
				return runErr

			case <-timer.C:
				lgr.Logger.Info(
					"live mode shutdown waiting period expired. Exiting now",
					slog.Duration("period", svcs.CfgSvc.GetModeMaxShutdownTime()),
				)
				return runErr

			case s := <-statsStream:
				procStats(svcs.DataSvc, s)

			case e := <-errorStream:
				procError(svcs.DataSvc, e)
			}
		}
	}
}

func startAgent(ctx context.Context, agent *pipeline.Agent, detect bool) error {
	if err := agent.Start(ctx); err != nil {
		return err
	}
	if !detect {
		return nil
	}
	return agent.EnableProcessing()
}
