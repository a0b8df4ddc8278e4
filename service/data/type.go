package data

import "github.com/khaledhikmat/vs-live/model"

type IService interface {
	NewError(err interface{}) error
	NewSessionStats(stats model.SessionStats) error
	NewRendererStats(stats model.RendererStats) error
	NewSamplerStats(stats model.SamplerStats) error
	NewAlerterStats(stats model.AlerterStats) error
	NewAlert(alert model.Alert) error
	RetrieveAlerts() ([]model.Alert, error)
}
