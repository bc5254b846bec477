package repository

import (
	"context"
	"errors"

	"randomblog/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmailFold(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateNames(ctx context.Context, id uint, firstName, lastName string) error
	SetStaff(ctx context.Context, username string, staff bool) error
	ListStaff(ctx context.Context) ([]models.User, error)
	WithTx(tx *gorm.DB) UserRepository
	Transaction(ctx context.Context, fn func(repo UserRepository) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// Transaction runs fn against a repository bound to one database transaction.
func (r *userRepository) Transaction(ctx context.Context, fn func(repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmailFold finds the oldest account whose email matches case-insensitively.
// It returns nil, nil when there is none.
func (r *userRepository) GetByEmailFold(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		Order("id").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists", err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateNames(ctx context.Context, id uint, firstName, lastName string) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) SetStaff(ctx context.Context, username string, staff bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("is_staff", staff)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", username)
	}
	return nil
}

func (r *userRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.WithContext(ctx).Where("is_staff = ?", true).Order("username").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
