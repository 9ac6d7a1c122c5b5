package storage

import (
	"context"
	"time"
)

// StubObjectStorage stands in when object storage is disabled. URLs point
// at a placeholder host and every object is reported as present, so the
// image confirmation flow keeps working in development.
type StubObjectStorage struct {
	BaseURL string
}

func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{BaseURL: "https://storage.example.com"}
}

func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	return s.presigned("upload", storageKey, expiresIn)
}

func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return s.presigned("download", storageKey, expiresIn)
}

// DeleteObject always succeeds.
func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errStorageKeyRequired
	}
	return nil
}

// ObjectExists always reports true.
func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errStorageKeyRequired
	}
	return true, nil
}

func (s *StubObjectStorage) presigned(op, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errStorageKeyRequired
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + op + "/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}
