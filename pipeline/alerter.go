package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/lgr"
	"github.com/natefinch/lumberjack"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SimpleAlerter records recognized suspects: detections log line, snapshot, alert record and webhook.
// Repeats of the same name within the cooldown are suppressed.
func SimpleAlerter(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, 100)

	detectionsLog := &lumberjack.Logger{
		Filename:   svcs.CfgSvc.GetDetectionsLogFile(),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7, // days
		Compress:   true,
	}

	go func() {
		defer detectionsLog.Close()

		startTime := time.Now()
		cooldown := svcs.CfgSvc.GetAlertCooldown()
		lastAlertTime := map[string]time.Time{}
		stats := model.AlerterStats{Name: "simpleAlerter"}

		flush := func() {
			stats.Uptime = int64(time.Since(startTime).Seconds())
			stats.Timestamp = time.Now().Unix()
			send(canx, statsStream, stats)
		}

		ticker := time.NewTicker(svcs.CfgSvc.GetStatsInterval())
		defer ticker.Stop()

		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				return

			case <-ticker.C:
				flush()

			case alert := <-in:
				name := alert.Detection.Name
				if last, ok := lastAlertTime[name]; ok && alert.Timestamp.Sub(last) < cooldown {
					lgr.Logger.Debug(
						"alert suppressed by cooldown",
						slog.String("name", name),
					)
					continue
				}
				lastAlertTime[name] = alert.Timestamp

				stats.Alerts++
				if err := procAlert(canx, svcs, detectionsLog, alert); err != nil {
					stats.Errors++
					send(canx, errorStream, model.GenError("alerter",
						err,
						map[string]interface{}{"name": name, "session": alert.SessionID},
						"error processing alert"))
				}
			}
		}
	}()

	return in
}

func procAlert(ctx context.Context, svcs ServicesFactory, detectionsLog *lumberjack.Logger, alert AlertData) error {
	record := model.Alert{
		SessionID:  alert.SessionID,
		Name:       alert.Detection.Name,
		Location:   alert.Detection.Location,
		Similarity: alert.Detection.Similarity,
		ImagePath:  alert.Detection.ImagePath,
		Timestamp:  alert.Timestamp,
	}

	lgr.Logger.Info(
		"alert detected",
		slog.String("name", record.Name),
		slog.String("location", record.Location),
		slog.Float64("similarity", record.Similarity),
		slog.Time("timestamp", record.Timestamp),
	)

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if len(alert.Frame) > 0 {
		url, err := svcs.StorageSvc.StoreFile(ctx, fmt.Sprintf("%s_alerted_frame_%d.jpg", alert.SessionID, alert.Timestamp.UnixNano()), alert.Frame)
		keep(err)
		record.SnapshotURL = url
	}

	line, err := json.Marshal(record)
	if err == nil {
		_, err = detectionsLog.Write(append(line, '\n'))
	}
	keep(err)

	keep(svcs.DataSvc.NewAlert(record))

	keep(svcs.WebhookSvc.Post(ctx, map[string]interface{}{
		"source":        svcs.CfgSvc.GetStationName(),
		"alertImageURL": record.SnapshotURL,
		"label":         record.Name,
		"location":      record.Location,
		"confidence":    record.Similarity,
		"timestamp":     record.Timestamp.Format(time.RFC3339),
	}))

	return firstErr
}

func send(ctx context.Context, stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	select {
	case stream <- v:
	case <-ctx.Done():
	}
}
