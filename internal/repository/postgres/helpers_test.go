package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"storefront/domain"
	"storefront/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "storefront.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) domain.User {
	t.Helper()

	user := domain.User{Username: "jdoe", Email: email, Password: "hash", Role: domain.RoleCustomer}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), &user))

	return user
}

func seedCustomer(t *testing.T, db *gorm.DB, userID uint) domain.Customer {
	t.Helper()

	customer := validCustomer(userID)
	require.NoError(t, NewCustomerRepository(db).Create(context.Background(), &customer))

	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) domain.Product {
	t.Helper()

	product := domain.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, NewProductRepository(db).Create(context.Background(), &product))

	return product
}

func validCustomer(userID uint) domain.Customer {
	return domain.Customer{
		UserID:      userID,
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "9123456789",
		Address:     "12 Market St",
		ZipCode:     "1234",
	}
}
