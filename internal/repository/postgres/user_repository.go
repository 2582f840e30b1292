package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		DB: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := conn(ctx, r.DB).Omit("Customer").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	var user domain.User

	err := conn(ctx, r.DB).Preload("Customer").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User

	err := conn(ctx, r.DB).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	var user domain.User

	err := conn(ctx, r.DB).Where("verification_token = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User

	if err := conn(ctx, r.DB).Preload("Customer").Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	return users, nil
}

// Update writes the mutable account columns. Email is never rewritten here.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()

	result := conn(ctx, r.DB).Model(&domain.User{}).Where("id = ?", user.ID).
		Select("username", "password", "role", "is_verified", "google_id", "updated_at").
		Updates(user)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id uint, token string, expiresAt time.Time) error {
	result := conn(ctx, r.DB).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": expiresAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to store verification token: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}

// MarkVerified consumes the token: the row only matches while the token is
// still present, so a second call with the same token affects nothing.
func (r *UserRepository) MarkVerified(ctx context.Context, id uint, token string) error {
	result := conn(ctx, r.DB).Model(&domain.User{}).
		Where("id = ? AND verification_token = ?", id, token).
		Updates(map[string]interface{}{
			"is_verified":             true,
			"verification_token":      nil,
			"verification_expires_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to verify user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrInvalidToken
	}

	return nil
}
