package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/flicky/moodshop-api/internal/config"
	"github.com/flicky/moodshop-api/internal/model"
)

// Sender delivers OTP codes and invoices over SMTP. Without SMTP
// credentials it only logs what it would have sent.
type Sender struct {
	dialer *gomail.Dialer
	from   string
	log    *slog.Logger
}

func NewSender(cfg config.SMTPConfig, log *slog.Logger) *Sender {
	s := &Sender{from: cfg.From, log: log}
	if cfg.User == "" || cfg.Password == "" {
		log.Warn("SMTP credentials not set, mail will be logged only")
		return s
	}
	s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return s
}

func (s *Sender) SendOTP(ctx context.Context, email, code string) error {
	if s.dialer == nil {
		s.log.InfoContext(ctx, "otp generated", "email", email, "code", code)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your MoodShop verification code")
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code))

	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

func (s *Sender) SendInvoice(ctx context.Context, order *model.Order) error {
	body, err := RenderInvoice(order)
	if err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}

	if s.dialer == nil {
		s.log.InfoContext(ctx, "invoice generated", "email", order.Email, "order_number", order.Number)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", order.Email)
	m.SetHeader("Subject", "Your Invoice "+order.Number)
	m.SetBody("text/plain", body)

	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("send invoice mail: %w", err)
	}
	return nil
}

// send runs the blocking SMTP exchange but returns early when ctx ends.
func (s *Sender) send(ctx context.Context, m *gomail.Message) error {
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(`Invoice {{.Number}}
Date: {{.CreatedAt.Format "2006-01-02"}}

Bill to:
{{.Shipping.Name}}
{{.Shipping.Address}}
{{.Shipping.City}}, {{.Shipping.State}} {{.Shipping.Zip}}
{{.Shipping.Country}}

Items:
{{range .Items}}  {{.Name}} x{{.Quantity}} @ ${{.Price.StringFixed 2}} = ${{(.LineTotal).StringFixed 2}}
{{end}}
Subtotal: ${{.Total.StringFixed 2}}
Shipping: Free
Total:    ${{.Total.StringFixed 2}}

Paid with {{.PaymentMethod}} (transaction {{.TransactionID}}).
Thank you for your purchase!
`))

func RenderInvoice(order *model.Order) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, order); err != nil {
		return "", err
	}
	return buf.String(), nil
}
