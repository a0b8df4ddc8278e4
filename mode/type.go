package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/pipeline"
	"github.com/khaledhikmat/vs-live/service/data"
	"github.com/khaledhikmat/vs-live/service/lgr"
)

type Processor func(canxCtx context.Context,
	svcs pipeline.ServicesFactory,
	alerter pipeline.Alerter) error

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.SessionStats:
		err = datasvc.NewSessionStats(stats)
	case model.RendererStats:
		err = datasvc.NewRendererStats(stats)
	case model.SamplerStats:
		err = datasvc.NewSamplerStats(stats)
	case model.AlerterStats:
		err = datasvc.NewAlerterStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
