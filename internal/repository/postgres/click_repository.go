package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/internal/repository"
)

type clickRepository struct {
	db *gorm.DB
}

// NewClickRepository creates a gorm-backed click event repository
func NewClickRepository(db *gorm.DB) repository.ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) Put(ctx context.Context, event *domain.ClickEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return domain.NewStorageError("put click", err)
	}
	return nil
}

func (r *clickRepository) QueryByCode(ctx context.Context, code string, since int64) ([]domain.ClickEvent, error) {
	events := []domain.ClickEvent{}

	query := r.db.WithContext(ctx).Where("code = ?", code)
	if since > 0 {
		query = query.Where(clause.Gte{Column: clause.Column{Name: "timestamp"}, Value: since})
	}

	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}}).
		Find(&events).Error
	if err != nil {
		return nil, domain.NewStorageError("query clicks", err)
	}

	return events, nil
}

// NewStore wires both gorm repositories over one connection
func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Links:  NewLinkRepository(db),
		Clicks: NewClickRepository(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
