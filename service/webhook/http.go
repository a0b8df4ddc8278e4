package webhook

import (
	"bytes"
	"context"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/config"
)

type webhookService struct {
	CfgSvc config.IService
	client *http.Client
}

// New posts to WEBHOOK_URL. Without one configured, Post does nothing.
func New(cfgsvc config.IService) IService {
	return &webhookService{
		CfgSvc: cfgsvc,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (svc *webhookService) Post(ctx context.Context, payload map[string]interface{}) error {
	url := svc.CfgSvc.GetWebhookURL()
	if url == "" {
		return nil
	}

	body, err := jsoniter.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return xerrors.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xerrors.Errorf("webhook responded %s", resp.Status)
	}

	return nil
}
