package repository

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/usnistgov/oar-pdr-sub001/internal/infra/database/models"
)

const permCacheExpiration = 5 * time.Minute

// PermissionRepository answers edit-permission lookups from postgres, with
// a memcached read-through cache in front. The cache may be nil.
type PermissionRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewPermissionRepository(db *gorm.DB, mc *memcache.Client) *PermissionRepository {
	return &PermissionRepository{db: db, mc: mc}
}

func (r *PermissionRepository) HasEditPermission(ctx context.Context, userID, resourceID string) (bool, error) {
	key := "perm/" + resourceID + "/" + userID

	if r.mc != nil {
		// cache trouble is not permission trouble; misses and errors both
		// fall through to the database
		if item, err := r.mc.Get(key); err == nil {
			return len(item.Value) == 1 && item.Value[0] == '1', nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Where("resource_id = ? AND user_id = ?", resourceID, userID).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "looking up edit permission")
	}

	permitted := count > 0
	if r.mc != nil {
		value := []byte{'0'}
		if permitted {
			value = []byte{'1'}
		}
		_ = r.mc.Set(&memcache.Item{
			Key:        key,
			Value:      value,
			Expiration: int32(permCacheExpiration / time.Second),
		})
	}
	return permitted, nil
}

// Grant records an edit permission, ignoring duplicates.
func (r *PermissionRepository) Grant(ctx context.Context, userID, resourceID string) error {
	row := models.Permission{ResourceID: resourceID, UserID: userID}
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND user_id = ?", resourceID, userID).
		FirstOrCreate(&row).Error
	if err != nil {
		return pkgerrors.Wrap(err, "granting edit permission")
	}
	if r.mc != nil {
		_ = r.mc.Delete("perm/" + resourceID + "/" + userID)
	}
	return nil
}
