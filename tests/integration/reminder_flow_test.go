package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestReminderFlow_UrgentThenRegularShareLedger(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "lembrete@test.com")
	app.createBill(t, token, "Agua", "80.00", today())

	// Step 1: Urgent sweep reminds the bill due today
	rec := app.sweep("urgent")
	if rec.Code != http.StatusOK {
		t.Fatalf("urgent sweep failed: %d %s", rec.Code, rec.Body.String())
	}
	if sent := parseJSON(t, rec)["sent"]; sent != float64(1) {
		t.Fatalf("expected 1 urgent reminder, got %v", sent)
	}
	msg := app.Mailer.last()
	if msg == nil || msg.To != "lembrete@test.com" {
		t.Fatalf("expected mail to lembrete@test.com, got %+v", msg)
	}
	if !strings.Contains(msg.Subject, "Agua") {
		t.Errorf("expected bill name in subject, got %q", msg.Subject)
	}

	// Step 2: A second urgent sweep inside the cooldown sends nothing
	rec = app.sweep("urgent")
	if sent := parseJSON(t, rec)["sent"]; sent != float64(0) {
		t.Errorf("expected cooldown to block, got %v sent", sent)
	}

	// Step 3: The urgent record also satisfies the one-shot regular reminder
	rec = app.sweep("regular")
	if sent := parseJSON(t, rec)["sent"]; sent != float64(0) {
		t.Errorf("expected regular reminder to be skipped, got %v sent", sent)
	}
	if app.Mailer.count() != 1 {
		t.Errorf("expected exactly 1 mail, got %d", app.Mailer.count())
	}

	// Step 4: The reminder shows in the user's history
	rec = app.request("GET", "/api/v1/user/notifications", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list notifications failed: %d %s", rec.Code, rec.Body.String())
	}
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(data))
	}
	if kind := data[0].(map[string]interface{})["kind"]; kind != "urgent" {
		t.Errorf("expected urgent notification, got %v", kind)
	}
}

func TestReminderFlow_RegularRespectsNoticeWindow(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "janela@test.com")
	app.createBill(t, token, "Perto", "50.00", today().AddDate(0, 0, 2))
	app.createBill(t, token, "Longe", "50.00", today().AddDate(0, 0, 20))

	rec := app.request("POST", "/api/v1/notifications/test", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("test notifications failed: %d %s", rec.Code, rec.Body.String())
	}
	if sent := parseJSON(t, rec)["sent"]; sent != float64(1) {
		t.Fatalf("expected 1 regular reminder, got %v", sent)
	}

	// Widening the window picks up the second bill; the first stays one-shot
	rec = app.request("PUT", "/api/v1/user/notification-settings", `{"notification_days_before":30}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update settings failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.sweep("regular")
	if sent := parseJSON(t, rec)["sent"]; sent != float64(1) {
		t.Errorf("expected 1 more regular reminder, got %v", sent)
	}
	if app.Mailer.count() != 2 {
		t.Errorf("expected 2 mails, got %d", app.Mailer.count())
	}
}

func TestReminderFlow_TestNotificationsOnlyCoverCaller(t *testing.T) {
	app := setupApp(t)
	alice, _ := app.registerUser(t, "alice@test.com")
	bob, _ := app.registerUser(t, "bob@test.com")
	app.createBill(t, bob, "Aluguel", "1200.00", today().AddDate(0, 0, 2))

	rec := app.request("POST", "/api/v1/notifications/test", "", alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("test notifications failed: %d %s", rec.Code, rec.Body.String())
	}
	if sent := parseJSON(t, rec)["sent"]; sent != float64(0) {
		t.Errorf("expected no reminders for alice, got %v", sent)
	}
	if app.Mailer.count() != 0 {
		t.Errorf("expected bob's bill to stay unmailed, got %d mails", app.Mailer.count())
	}

	rec = app.request("POST", "/api/v1/notifications/test", "", bob)
	if sent := parseJSON(t, rec)["sent"]; sent != float64(1) {
		t.Errorf("expected 1 reminder for bob, got %v", sent)
	}
}

func TestReminderFlow_SweepRequiresKey(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/v1/sweeps/regular", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_API_KEY" {
		t.Errorf("expected INVALID_API_KEY, got %v", code)
	}
}
