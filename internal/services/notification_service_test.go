package services

import (
	"context"
	"testing"
	"time"

	"billminder/internal/models"
	"billminder/internal/pagination"
	"billminder/internal/testutil"
)

func TestFindByBill(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewNotificationService(db)
	user := testutil.CreateTestUser(t, db)
	bill := testutil.CreateTestBill(t, db, user.ID, "10.00", day(time.June, 10))
	otherBill := testutil.CreateTestBill(t, db, user.ID, "10.00", day(time.June, 10))

	morning := time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	testutil.CreateTestNotification(t, db, bill, models.NotificationKindUrgent, morning)
	testutil.CreateTestNotification(t, db, bill, models.NotificationKindUrgent, noon)
	testutil.CreateTestNotification(t, db, otherBill, models.NotificationKindRegular, morning)

	records, err := svc.FindByBill(context.Background(), bill.ID)
	testutil.AssertNoError(t, err)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].SentAt.Equal(noon) {
		t.Errorf("expected newest record first, got %s", records[0].SentAt)
	}

	records, err = svc.FindByBill(context.Background(), "missing")
	testutil.AssertNoError(t, err)
	if len(records) != 0 {
		t.Errorf("expected no records for unknown bill, got %d", len(records))
	}
}

func TestRecord(t *testing.T) {
	t.Run("defaults_channel", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewNotificationService(db)
		user := testutil.CreateTestUser(t, db)
		bill := testutil.CreateTestBill(t, db, user.ID, "10.00", day(time.June, 10))

		billID := bill.ID
		n := &models.Notification{
			UserID:  user.ID,
			BillID:  &billID,
			Kind:    models.NotificationKindRegular,
			Message: "Lembrete",
			SentAt:  time.Date(2024, 6, 7, 18, 0, 0, 0, time.UTC),
		}
		testutil.AssertNoError(t, svc.Record(context.Background(), n))

		if n.ID == "" {
			t.Error("expected id assigned")
		}
		if n.Channel != models.NotificationChannelEmail {
			t.Errorf("expected email channel, got %q", n.Channel)
		}
	})

	t.Run("requires_user_and_time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewNotificationService(db)

		err := svc.Record(context.Background(), &models.Notification{Kind: models.NotificationKindRegular, SentAt: time.Now()})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		err = svc.Record(context.Background(), &models.Notification{UserID: "u", Kind: models.NotificationKindRegular})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestListUserNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewNotificationService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	bill := testutil.CreateTestBill(t, db, user.ID, "10.00", day(time.June, 10))
	otherBill := testutil.CreateTestBill(t, db, other.ID, "10.00", day(time.June, 10))

	for h := 0; h < 5; h++ {
		testutil.CreateTestNotification(t, db, bill, models.NotificationKindUrgent, time.Date(2024, 6, 10, 6+h*3, 0, 0, 0, time.UTC))
	}
	testutil.CreateTestNotification(t, db, otherBill, models.NotificationKindUrgent, time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC))

	page, err := svc.ListUserNotifications(user.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 5 || page.TotalPages != 3 {
		t.Errorf("expected 5 items over 3 pages, got %d over %d", page.TotalItems, page.TotalPages)
	}
	if len(page.Data) != 2 || page.Data[0].SentAt.Hour() != 18 {
		t.Errorf("expected newest record first")
	}
	for _, n := range page.Data {
		if n.UserID != user.ID {
			t.Errorf("record %s belongs to another user", n.ID)
		}
	}
}
