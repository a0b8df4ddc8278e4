package storage

import "context"

type IService interface {
	// StoreFile saves data under name and returns where it can be fetched.
	StoreFile(ctx context.Context, name string, data []byte) (string, error)
}
