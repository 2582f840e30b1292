package domain

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var customerValidate = validator.New()

type Customer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	FirstName   string    `gorm:"column:first_name;not null" json:"first_name" validate:"required,max=100"`
	LastName    string    `gorm:"column:last_name;not null" json:"last_name" validate:"required,max=100"`
	PhoneNumber string    `gorm:"column:phone_number;not null" json:"phone_number" validate:"required,numeric,len=10,startswith=9"`
	Address     string    `gorm:"column:address;not null" json:"address" validate:"required,max=255"`
	ZipCode     string    `gorm:"column:zip_code;not null" json:"zip_code" validate:"required,numeric,len=4"`
	Image       string    `gorm:"column:image" json:"image"`
	PushToken   *string   `gorm:"column:push_token" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

// Validate enforces the profile schema. It runs from the GORM hooks so an
// invalid profile aborts whatever transaction is writing it.
func (c *Customer) Validate() error {
	if c.UserID == 0 {
		return NewMissingFieldsError("user_id")
	}

	if err := customerValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return &ValidationError{Fields: fields, Message: "invalid customer profile: " + err.Error()}
		}
		return err
	}

	return nil
}

func (c *Customer) BeforeSave(tx *gorm.DB) error {
	return c.Validate()
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
