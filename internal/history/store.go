// Package history persists the top pick of each search, at most once per
// (restaurant, food query, location).
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spacesedan/platepick/internal/models"
)

// ErrDuplicate is returned by Store.Append when a record with the same dedup
// key already exists.
var ErrDuplicate = errors.New("history: record already exists")

// Store is a document store with equality queries and appends. Append assigns
// the record timestamp at write time.
type Store interface {
	FindByKey(ctx context.Context, key models.DedupKey) ([]models.HistoryRecord, error)
	Append(ctx context.Context, rec models.HistoryRecord) (models.HistoryRecord, error)
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("history: %s failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// DedupHash is the storage key for a dedup triple. Matching stays exact and
// case-sensitive.
func DedupHash(key models.DedupKey) string {
	raw := strings.Join([]string{key.RestaurantName, key.FoodQuery, key.Location}, "\x1f")
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
