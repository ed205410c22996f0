package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/db"
)

// MaxImages is the largest media group the messaging platform sends at once.
const MaxImages = 10

// ImageRef is one platform-hosted media file.
type ImageRef struct {
	TelegramID string
	Kind       db.ImageKind
}

// ImageRepository stores profile media references.
type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(database *gorm.DB) *ImageRepository {
	return &ImageRepository{db: database}
}

// ReplaceImages swaps the user's whole media set in one transaction.
// An empty refs clears it.
func (r *ImageRepository) ReplaceImages(ctx context.Context, userID int64, refs []ImageRef) ([]db.Image, error) {
	if len(refs) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", ErrInvalidProfile, MaxImages)
	}
	images := make([]db.Image, 0, len(refs))
	for i, ref := range refs {
		if strings.TrimSpace(ref.TelegramID) == "" {
			return nil, fmt.Errorf("%w: image %d has no file id", ErrInvalidProfile, i)
		}
		if ref.Kind != db.ImageKindImage && ref.Kind != db.ImageKindVideo {
			return nil, fmt.Errorf("%w: image %d has kind %q", ErrInvalidProfile, i, ref.Kind)
		}
		images = append(images, db.Image{
			UserID:     userID,
			TelegramID: ref.TelegramID,
			Kind:       ref.Kind,
			Position:   i,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&db.Image{}).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// ListImages returns the user's media in display order.
func (r *ImageRepository) ListImages(ctx context.Context, userID int64) ([]db.Image, error) {
	var images []db.Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&images).Error
	return images, err
}
