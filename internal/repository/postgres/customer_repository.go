package postgres

import (
	"context"
	"errors"
	"fmt"

	"storefront/domain"

	"gorm.io/gorm"
)

type CustomerRepository struct {
	DB *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if err := conn(ctx, r.DB).Omit("User").Create(customer).Error; err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id uint) (domain.Customer, error) {
	var customer domain.Customer

	err := conn(ctx, r.DB).Preload("User").First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("failed to find customer: %w", err)
	}

	return customer, nil
}

func (r *CustomerRepository) FindByUserID(ctx context.Context, userID uint) (domain.Customer, error) {
	var customer domain.Customer

	err := conn(ctx, r.DB).Where("user_id = ?", userID).First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("failed to find customer: %w", err)
	}

	return customer, nil
}

// Update saves the whole profile, which re-runs the schema validation hook.
func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	result := conn(ctx, r.DB).Omit("User").Save(customer)
	if result.Error != nil {
		var verr *domain.ValidationError
		if errors.As(result.Error, &verr) {
			return result.Error
		}
		return fmt.Errorf("failed to update customer: %w", result.Error)
	}

	return nil
}

// SetPushToken overwrites the device token; nil clears it. UpdateColumn
// skips the profile hooks since only one column is touched.
func (r *CustomerRepository) SetPushToken(ctx context.Context, id uint, token *string) error {
	result := conn(ctx, r.DB).Model(&domain.Customer{}).Where("id = ?", id).UpdateColumn("push_token", token)
	if result.Error != nil {
		return fmt.Errorf("failed to update push token: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}
