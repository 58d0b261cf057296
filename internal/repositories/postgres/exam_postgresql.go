package postgres

import (
	"context"

	"github.com/EduCore-2025/exam-engine/internal/models"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"gorm.io/gorm"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return e.db.WithContext(ctx).Create(exam).Error
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Exam{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.DateFrom != nil {
		query = query.Where("scheduled_start >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("scheduled_start <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Order("scheduled_start").Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) TransitionStatus(ctx context.Context, id uint, from, to models.ExamStatus) (bool, error) {
	res := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (e *ExamPostgreSQL) IncrementParticipants(ctx context.Context, id uint) error {
	return e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", id).
		Update("participant_count", gorm.Expr("participant_count + 1")).Error
}

type RegistrationPostgreSQL struct {
	db *gorm.DB
}

func NewRegistrationPostgreSQL(db *gorm.DB) repositories.RegistrationRepository {
	return &RegistrationPostgreSQL{db: db}
}

func (r *RegistrationPostgreSQL) Create(ctx context.Context, reg *models.Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *RegistrationPostgreSQL) Get(ctx context.Context, userID, examID uint) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationPostgreSQL) Exists(ctx context.Context, userID, examID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("user_id = ? AND exam_id = ?", userID, examID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RegistrationPostgreSQL) MarkAttended(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", id).
		Update("attended", true).Error
}
