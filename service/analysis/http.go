package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/model"
	"github.com/khaledhikmat/vs-live/service/config"
)

const (
	processFramePath  = "/process-live-frame"
	uploadSuspectPath = "/upload-suspect"
	recordsPath       = "/get-faces"
	deleteRecordPath  = "/delete-face/"

	// Error bodies are only read for the message
	maxErrorBody = 4 << 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type httpService struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(cfgSvc config.IService) IService {
	return &httpService{
		baseURL: strings.TrimRight(cfgSvc.GetAnalysisBaseURL(), "/"),
		client:  newClient(cfgSvc.GetAnalysisTimeout()),
	}
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

type processFrameRequest struct {
	Image string `json:"image"`
}

// ProcessFrame posts the frame as a JPEG data URL, the shape the backend accepts.
func (svc *httpService) ProcessFrame(ctx context.Context, jpeg []byte) (model.AnalysisResult, error) {
	body, err := json.Marshal(processFrameRequest{
		Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
	})
	if err != nil {
		return model.AnalysisResult{}, xerrors.Errorf("encoding frame request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+processFramePath, bytes.NewReader(body))
	if err != nil {
		return model.AnalysisResult{}, xerrors.Errorf("building frame request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var result model.AnalysisResult
	if err := svc.do(req, &result); err != nil {
		return model.AnalysisResult{}, err
	}

	if !result.Succeeded() {
		return result, xerrors.Errorf("%w: status %q: %s", ErrUnsuccessful, result.Status, result.Message)
	}

	return result, nil
}

func (svc *httpService) UploadSuspect(ctx context.Context, suspect model.Suspect) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("suspect_image", suspect.PhotoName)
	if err != nil {
		return xerrors.Errorf("creating image part: %w", err)
	}
	if _, err := part.Write(suspect.Photo); err != nil {
		return xerrors.Errorf("writing image part: %w", err)
	}

	fields := [][2]string{
		{"suspect_name", suspect.Name},
		{"police_station", suspect.Station},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return xerrors.Errorf("writing field %s: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return xerrors.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+uploadSuspectPath, &body)
	if err != nil {
		return xerrors.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := svc.do(req, &result); err != nil {
		return err
	}

	if result.Status != "success" {
		return xerrors.Errorf("%w: %s", ErrUnsuccessful, result.Message)
	}

	return nil
}

func (svc *httpService) RetrieveRecords(ctx context.Context) ([]model.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.baseURL+recordsPath, nil)
	if err != nil {
		return nil, xerrors.Errorf("building records request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var result struct {
		Status  string         `json:"status"`
		Message string         `json:"message"`
		Records []model.Record `json:"faces"`
	}
	if err := svc.do(req, &result); err != nil {
		return nil, err
	}

	if result.Status != "success" {
		return nil, xerrors.Errorf("%w: %s", ErrUnsuccessful, result.Message)
	}

	return result.Records, nil
}

// DeleteRecord removes a suspect record and its reference image. An unknown id yields ErrNotFound.
func (svc *httpService) DeleteRecord(ctx context.Context, id int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, svc.baseURL+deleteRecordPath+strconv.Itoa(id), nil)
	if err != nil {
		return xerrors.Errorf("building delete request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := svc.do(req, &result); err != nil {
		return err
	}

	if result.Status != "success" {
		return xerrors.Errorf("%w: %s", ErrUnsuccessful, result.Message)
	}

	return nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses carry the backend message when present.
func (svc *httpService) do(req *http.Request, out interface{}) error {
	resp, err := svc.client.Do(req)
	if err != nil {
		return xerrors.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var payload struct {
			Message string `json:"message"`
		}
		msg := resp.Status
		if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
			msg = fmt.Sprintf("%s: %s", resp.Status, payload.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			return xerrors.Errorf("%s %s: %w: %s", req.Method, req.URL.Path, ErrNotFound, msg)
		}
		return xerrors.Errorf("%s %s: %s", req.Method, req.URL.Path, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Errorf("decoding %s response: %w", req.URL.Path, err)
	}

	return nil
}
