package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/eventhub/internal/database"
	"example.com/eventhub/internal/model"
)

// MonthlyCount is a growth-series row: subjects created in one month.
// Months with no creations are simply absent from the series.
type MonthlyCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Total int64 `json:"total"`
}

// SubjectRepository reads the external subject registry. This service
// never writes to it.
type SubjectRepository interface {
	FindByID(ctx context.Context, id string) (*model.Subject, error)
	Count(ctx context.Context) (int64, error)
	GrowthByMonth(ctx context.Context) ([]MonthlyCount, error)
}

// subjectRepository implements SubjectRepository
type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository creates a new subject repository
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

// FindByID finds a subject by ID
func (r *subjectRepository) FindByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).Where("uuid = ?", id).First(&subject).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

// Count counts all subjects in the registry
func (r *subjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Subject{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GrowthByMonth buckets subject creation timestamps by (year, month),
// ascending chronologically
func (r *subjectRepository) GrowthByMonth(ctx context.Context) ([]MonthlyCount, error) {
	var rows []MonthlyCount
	err := r.db.WithContext(ctx).
		Model(&model.Subject{}).
		Select("EXTRACT(YEAR FROM created_at)::int AS year, EXTRACT(MONTH FROM created_at)::int AS month, COUNT(*) AS total").
		Group("year, month").
		Order("year, month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
