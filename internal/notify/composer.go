package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"billminder/internal/billing"
	"billminder/internal/format"
	"billminder/internal/models"
)

const htmlBody = `<!DOCTYPE html>
<html lang="pt-BR">
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 600px; margin: 0 auto; padding: 24px;">
    {{if .Urgent}}<h2 style="color: #dc2626;">🔥 URGENTE: conta vence {{.Due}}!</h2>{{else}}<h2 style="color: #1e40af;">⚠️ Lembrete de vencimento</h2>{{end}}
    <p>Olá, {{.Owner}}!</p>
    <p>A conta abaixo vence <strong>{{.Due}}</strong>:</p>
    <table style="border-collapse: collapse; width: 100%;">
      <tr><td style="padding: 6px 0;"><strong>Conta:</strong></td><td>{{.Name}}</td></tr>
      <tr><td style="padding: 6px 0;"><strong>Valor:</strong></td><td>{{.Amount}}</td></tr>
      <tr><td style="padding: 6px 0;"><strong>Vencimento:</strong></td><td>{{.DueDate}}</td></tr>
      {{- if .Category}}
      <tr><td style="padding: 6px 0;"><strong>Categoria:</strong></td><td>{{.Category}}</td></tr>
      {{- end}}
    </table>
    {{- if .HasInvoice}}
    <p style="background: #eff6ff; padding: 12px; border-radius: 6px;">📎 O boleto está anexado a este email.</p>
    {{- end}}
    {{- if .PaymentInfo}}
    <h3>💳 Informações de pagamento (PIX)</h3>
    <pre style="background: #f3f4f6; padding: 12px; border-radius: 6px; white-space: pre-wrap;">{{.PaymentInfo}}</pre>
    {{- end}}
    <p style="color: #6b7280; font-size: 12px;">Você recebeu este email porque ativou lembretes de contas.</p>
  </div>
</body>
</html>
`

const textBody = `{{if .Urgent}}URGENTE: {{end}}Lembrete: {{.Name}} vence {{.Due}}

Olá, {{.Owner}}!

Conta: {{.Name}}
Valor: {{.Amount}}
Vencimento: {{.DueDate}}
{{- if .Category}}
Categoria: {{.Category}}
{{- end}}
{{- if .HasInvoice}}

O boleto está anexado a este email.
{{- end}}
{{- if .PaymentInfo}}

Informações de pagamento (PIX):
{{.PaymentInfo}}
{{- end}}
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("reminder.html").Parse(htmlBody))
	textTmpl = texttemplate.Must(texttemplate.New("reminder.txt").Parse(textBody))
)

// reminderView is the data both bodies render from.
type reminderView struct {
	Urgent      bool
	Owner       string
	Name        string
	Amount      string
	DueDate     string
	Due         string
	Category    string
	HasInvoice  bool
	PaymentInfo string
}

// Composer renders reminder emails in the operating timezone.
type Composer struct {
	loc *time.Location
}

// NewComposer creates a Composer for loc.
func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{loc: loc}
}

// Subject returns the reminder subject line, prefixed when urgent.
func (c *Composer) Subject(bill *models.Bill, urgent bool, now time.Time) string {
	prefix := ""
	if urgent {
		prefix = "🔥 URGENTE - "
	}
	return fmt.Sprintf("%s⚠️ Lembrete: %s vence %s", prefix, bill.Name, c.relativeDue(bill.DueDate, now))
}

// Compose builds the message for bill. Payment instructions are copied
// unchanged. The HTML body escapes them so the rendered text is identical to
// what was stored, and the text body carries them byte for byte.
func (c *Composer) Compose(bill *models.Bill, owner *models.User, urgent bool, now time.Time) (*Message, error) {
	view := reminderView{
		Urgent:     urgent,
		Owner:      owner.Name,
		Name:       bill.Name,
		Amount:     format.Money(bill.Amount),
		DueDate:    format.Date(bill.DueDate, c.loc),
		Due:        c.relativeDue(bill.DueDate, now),
		Category:   bill.CategoryName(),
		HasInvoice: bill.HasInvoice(),
	}
	if bill.PaymentInfo != nil {
		view.PaymentInfo = *bill.PaymentInfo
	}

	var html, text bytes.Buffer
	if err := htmlTmpl.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := textTmpl.Execute(&text, view); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}

	return &Message{
		To:      owner.NotificationAddress(),
		Subject: c.Subject(bill, urgent, now),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// relativeDue phrases the due date relative to now: HOJE, AMANHÃ, "em N dias".
func (c *Composer) relativeDue(due, now time.Time) string {
	days := billing.DaysUntil(now.In(c.loc), due)

	switch {
	case days == 0:
		return "HOJE"
	case days == 1:
		return "AMANHÃ"
	case days < 0:
		return fmt.Sprintf("desde %s", format.Date(due, c.loc))
	default:
		return fmt.Sprintf("em %d dias", days)
	}
}
