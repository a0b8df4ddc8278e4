package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-live/service/config"
)

type s3Service struct {
	CfgSvc   config.IService
	uploader *s3manager.Uploader
}

// NewS3 uses the default AWS credential chain with the configured region.
func NewS3(cfgsvc config.IService) (IService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfgsvc.GetAWSRegion()),
	})
	if err != nil {
		return nil, xerrors.Errorf("creating aws session: %w", err)
	}

	return &s3Service{
		CfgSvc:   cfgsvc,
		uploader: s3manager.NewUploader(sess),
	}, nil
}

func (svc *s3Service) StoreFile(ctx context.Context, name string, data []byte) (string, error) {
	out, err := svc.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(svc.CfgSvc.GetSnapshotsBucket()),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", xerrors.Errorf("uploading %s: %w", name, err)
	}

	return out.Location, nil
}

// New picks S3 when a bucket is configured and the local folder otherwise.
func New(cfgsvc config.IService) (IService, error) {
	if cfgsvc.GetSnapshotsBucket() != "" {
		return NewS3(cfgsvc)
	}
	return NewLocal(cfgsvc), nil
}
