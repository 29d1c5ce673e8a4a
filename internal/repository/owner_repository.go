package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pawpal/internal/model"
)

// OwnerRepository stores the owner graph in SQL tables. Only one owner is kept.
type OwnerRepository struct {
	db *gorm.DB
}

func NewOwnerRepository(db *gorm.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

func (r *OwnerRepository) Load(ctx context.Context) (*model.Owner, bool, error) {
	var owner model.Owner
	err := r.db.WithContext(ctx).
		Preload("Pets", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Pets.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("id ASC").
		First(&owner).Error
	switch {
	case err == nil:
		return &owner, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("load owner: %w", err)
	}
}

// Save replaces whatever is stored with owner, keeping pet and task order.
func (r *OwnerRepository) Save(ctx context.Context, owner *model.Owner) error {
	snapshot := owner.Clone()
	snapshot.ID = 0
	for i, pet := range snapshot.Pets {
		pet.ID = 0
		pet.OwnerID = 0
		pet.Position = i
		for j, task := range pet.Tasks {
			task.PetID = 0
			task.Position = j
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearAll(tx); err != nil {
			return err
		}
		return tx.Create(snapshot).Error
	})
	if err != nil {
		return fmt.Errorf("save owner: %w", err)
	}
	return nil
}

func (r *OwnerRepository) Reset(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(clearAll)
	if err != nil {
		return fmt.Errorf("reset owner: %w", err)
	}
	return nil
}

func (r *OwnerRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func clearAll(tx *gorm.DB) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, table := range []any{&model.Task{}, &model.Pet{}, &model.Owner{}} {
		if err := all.Delete(table).Error; err != nil {
			return fmt.Errorf("clear %T: %w", table, err)
		}
	}
	return nil
}
