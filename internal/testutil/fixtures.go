package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"billminder/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "Senha@123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:                   "Test User",
		Email:                  email,
		Password:               string(hash),
		NotificationDaysBefore: models.DefaultNotificationDaysBefore,
		IsActive:               true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category with a unique name and the given color.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID, color string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Categoria %d", nextID()),
		Color:  color,
		Icon:   models.DefaultCategoryIcon,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBill creates a pending bill due on the given date.
func CreateTestBill(t *testing.T, db *gorm.DB, userID, amount string, due time.Time) *models.Bill {
	t.Helper()

	bill := &models.Bill{
		UserID:  userID,
		Name:    fmt.Sprintf("Conta %d", nextID()),
		Amount:  decimal.RequireFromString(amount),
		DueDate: due,
		Status:  models.BillStatusPending,
	}
	if err := db.Create(bill).Error; err != nil {
		t.Fatalf("failed to create test bill: %v", err)
	}
	return bill
}

// CreateTestPaidBill creates a bill already paid on its due date.
func CreateTestPaidBill(t *testing.T, db *gorm.DB, userID, amount string, due time.Time) *models.Bill {
	t.Helper()

	paidAt := due
	bill := &models.Bill{
		UserID:  userID,
		Name:    fmt.Sprintf("Conta paga %d", nextID()),
		Amount:  decimal.RequireFromString(amount),
		DueDate: due,
		Status:  models.BillStatusPaid,
		PaidAt:  &paidAt,
	}
	if err := db.Create(bill).Error; err != nil {
		t.Fatalf("failed to create test paid bill: %v", err)
	}
	return bill
}

// CreateTestNotification records a reminder for the bill sent at sentAt.
func CreateTestNotification(t *testing.T, db *gorm.DB, bill *models.Bill, kind models.NotificationKind, sentAt time.Time) *models.Notification {
	t.Helper()

	billID := bill.ID
	n := &models.Notification{
		UserID:  bill.UserID,
		BillID:  &billID,
		Channel: models.NotificationChannelEmail,
		Kind:    kind,
		Message: "Lembrete: " + bill.Name,
		SentAt:  sentAt,
	}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}
