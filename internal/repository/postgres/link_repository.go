package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
)

// linkRepository implements repository.LinkRepository on gorm
type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a gorm-backed link repository
func NewLinkRepository(db *gorm.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Get retrieves a link by its code
func (r *linkRepository) Get(ctx context.Context, code string) (*domain.ShortLink, error) {
	var link domain.ShortLink

	result := r.db.WithContext(ctx).
		Where("code = ?", code).
		Take(&link)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrURLNotFound
		}
		return nil, domain.NewStorageError("get link", result.Error)
	}

	return &link, nil
}

// Create inserts the link unless the code already exists.
// ON CONFLICT DO NOTHING keeps the existing row; zero affected rows means we lost.
func (r *linkRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(link)

	if result.Error != nil {
		return domain.NewStorageError("create link", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrAliasTaken
	}

	return nil
}

// IncrementClicks adds delta in SQL so concurrent increments never overwrite each other
func (r *linkRepository) IncrementClicks(ctx context.Context, code string, delta int64, at int64) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ShortLink{}).
			Where("code = ?", code).
			Updates(map[string]interface{}{
				"click_count":     gorm.Expr("click_count + ?", delta),
				"last_clicked_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrURLNotFound
		}

		return tx.Model(&domain.ShortLink{}).
			Where("code = ?", code).
			Select("click_count").
			Scan(&count).Error
	})

	if err != nil {
		if errors.Is(err, domain.ErrURLNotFound) {
			return 0, err
		}
		return 0, domain.NewStorageError("increment clicks", err)
	}

	return count, nil
}
