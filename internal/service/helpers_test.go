package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/models"
)

func newTxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type roomListStub struct{ rooms []models.Room }

func (s *roomListStub) List(_ context.Context, filter models.RoomFilter) ([]models.Room, error) {
	var out []models.Room
	for _, room := range s.rooms {
		if filter.Available != nil && room.Available != *filter.Available {
			continue
		}
		if filter.DepartmentID != nil && (room.DepartmentID == nil || *room.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if len(filter.Types) > 0 && !containsRoomType(filter.Types, room.RoomType) {
			continue
		}
		out = append(out, room)
	}
	return out, nil
}

func containsRoomType(types []models.RoomType, t models.RoomType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

type memoryCache struct {
	values      map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) bool {
	raw, ok := c.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) {
	raw, err := json.Marshal(value)
	if err == nil {
		c.values[key] = raw
	}
}

func (c *memoryCache) Invalidate(_ context.Context, keys ...string) {
	for _, key := range keys {
		delete(c.values, key)
		c.invalidated = append(c.invalidated, key)
	}
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
