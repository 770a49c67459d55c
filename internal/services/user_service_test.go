package services

import (
	"testing"

	"billminder/internal/models"
	"billminder/internal/testutil"

	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Alice Souza", "alice@example.com", "Senha@123")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected user ID")
		}
		if user.Name != "Alice Souza" {
			t.Errorf("expected name Alice Souza, got %s", user.Name)
		}
		if user.NotificationDaysBefore != models.DefaultNotificationDaysBefore {
			t.Errorf("expected default notice window, got %d", user.NotificationDaysBefore)
		}
		if !user.IsActive {
			t.Error("expected user to be active")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("Dup", "dup@example.com", "Senha@123")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("Dup", "DUP@example.com", "Senha@456")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "a@example.com", "Senha@123")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.CreateUser("Ana", "", "Senha@123")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
		_, err = svc.CreateUser("Ana", "a@example.com", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("email_normalized_to_lowercase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Bob", "  Bob@Example.COM ", "Senha@123")
		testutil.AssertNoError(t, err)
		if user.Email != "bob@example.com" {
			t.Errorf("expected lowercase email, got %s", user.Email)
		}
	})

	t.Run("password_is_hashed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Carol", "carol@example.com", "Senha@123")
		testutil.AssertNoError(t, err)
		if user.Password == "Senha@123" {
			t.Fatal("password stored in plain text")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("Senha@123")) != nil {
			t.Error("stored hash does not match password")
		}
	})
}

func TestGetUserByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		created := testutil.CreateTestUserWithEmail(t, db, "find@example.com")

		user, err := svc.GetUserByEmail("FIND@example.com")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("expected %s, got %s", created.ID, user.ID)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.GetUserByEmail("nobody@example.com")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("inactive_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUserWithEmail(t, db, "inactive@example.com")
		db.Model(user).Update("is_active", false)

		_, err := svc.GetUserByEmail("inactive@example.com")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestGetUserByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		created := testutil.CreateTestUser(t, db)

		user, err := svc.GetUserByID(created.ID)
		testutil.AssertNoError(t, err)
		if user.Email != created.Email {
			t.Errorf("expected %s, got %s", created.Email, user.Email)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.GetUserByID("0190a3c4-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestVerifyPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	if !svc.VerifyPassword(user, testutil.TestPassword) {
		t.Error("expected correct password to verify")
	}
	if svc.VerifyPassword(user, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestUpdateNotificationSettings(t *testing.T) {
	t.Run("sets_email_and_days", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		email := "Alertas@Example.com"
		days := 7
		updated, err := svc.UpdateNotificationSettings(user.ID, NotificationSettings{
			NotificationEmail:      &email,
			NotificationDaysBefore: &days,
		})
		testutil.AssertNoError(t, err)

		if updated.NotificationAddress() != "alertas@example.com" {
			t.Errorf("expected notification address alertas@example.com, got %s", updated.NotificationAddress())
		}
		if updated.NoticeDays() != 7 {
			t.Errorf("expected 7 notice days, got %d", updated.NoticeDays())
		}
	})

	t.Run("empty_email_clears", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		email := "other@example.com"
		_, err := svc.UpdateNotificationSettings(user.ID, NotificationSettings{NotificationEmail: &email})
		testutil.AssertNoError(t, err)

		empty := ""
		updated, err := svc.UpdateNotificationSettings(user.ID, NotificationSettings{NotificationEmail: &empty})
		testutil.AssertNoError(t, err)
		if updated.NotificationEmail != nil {
			t.Errorf("expected notification email cleared, got %q", *updated.NotificationEmail)
		}
		if updated.NotificationAddress() != user.Email {
			t.Errorf("expected fallback to login email, got %s", updated.NotificationAddress())
		}
	})

	t.Run("days_out_of_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)
		user := testutil.CreateTestUser(t, db)

		for _, days := range []int{0, 31} {
			d := days
			_, err := svc.UpdateNotificationSettings(user.ID, NotificationSettings{NotificationDaysBefore: &d})
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		}
	})
}
