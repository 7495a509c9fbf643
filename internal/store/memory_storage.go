package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

// MemoryStorage adapts a fiber.Storage, such as the gofiber in-memory
// storage, to Storage by JSON encoding the values.
type MemoryStorage struct {
	backend fiber.Storage
}

func (s *MemoryStorage) Get(ctx context.Context, key string, val any) error {
	data, err := s.backend.Get(key)
	if err != nil {
		return err
	}
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, val)
}

func (s *MemoryStorage) Set(ctx context.Context, key string, val any, expiresIn time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if expiresIn < 0 {
		expiresIn = 0
	}
	return s.backend.Set(key, data, expiresIn)
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	data, err := s.backend.Get(key)
	if err != nil {
		return err
	}
	if data == nil {
		return ErrNotFound
	}
	return s.backend.Delete(key)
}

func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	data, err := s.backend.Get(key)
	return data != nil, err
}

func NewMemoryStorage(backend fiber.Storage) *MemoryStorage {
	return &MemoryStorage{backend: backend}
}
