package storage

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/config"
)

type localService struct {
	CfgSvc config.IService
}

func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(_ context.Context, name string, data []byte) (string, error) {
	folder := svc.CfgSvc.GetSnapshotsFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", xerrors.Errorf("creating snapshots folder: %w", err)
	}

	fn := filepath.Join(folder, filepath.Base(name))
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return "", xerrors.Errorf("writing snapshot %s: %w", fn, err)
	}

	return fn, nil
}
