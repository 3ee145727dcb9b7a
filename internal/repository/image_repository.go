package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dental-captcha/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) CreateBatch(ctx context.Context, images []model.Image) error {
	if len(images) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return fmt.Errorf("create images batch failed: %w", err)
	}
	return nil
}

func (r *ImageRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Image{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list image ids failed: %w", err)
	}
	return ids, nil
}

func (r *ImageRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]model.Image, error) {
	out := make(map[uint]model.Image, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var images []model.Image
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("get images by ids failed: %w", err)
	}
	for _, img := range images {
		out[img.ID] = img
	}
	return out, nil
}

// ExistingFilenames returns the subset of filenames already in the catalog.
func (r *ImageRepository) ExistingFilenames(ctx context.Context, filenames []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(filenames) == 0 {
		return out, nil
	}
	var existing []string
	if err := r.db.WithContext(ctx).Model(&model.Image{}).
		Where("filename IN ?", filenames).
		Pluck("filename", &existing).Error; err != nil {
		return nil, fmt.Errorf("query existing filenames failed: %w", err)
	}
	for _, name := range existing {
		out[name] = struct{}{}
	}
	return out, nil
}
