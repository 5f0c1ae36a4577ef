package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"

	"gopkg.in/gomail.v2"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

type emailTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func newTemplate(name, subject, text string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		text:    texttemplate.Must(texttemplate.New(name + ".text").Option("missingkey=zero").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Option("missingkey=zero").Parse(htmlLayout(text))),
	}
}

func htmlLayout(body string) string {
	return `<!DOCTYPE html><html><body style="font-family: sans-serif; color: #333333;"><p style="white-space: pre-line;">` +
		body +
		`</p>{{if .link}}<p><a href="{{.link}}">Open in Stylebook</a></p>{{end}}</body></html>`
}

// Template names.
const (
	TemplateAppointmentBooked    = "appointment_booked"
	TemplateAppointmentApproved  = "appointment_approved"
	TemplateAppointmentCanceled  = "appointment_canceled"
	TemplateAppointmentCompleted = "appointment_completed"
	TemplateDisputeFiled         = "dispute_filed"
	TemplateDisputeResolved      = "dispute_resolved"
	TemplateWithdrawalProcessed  = "withdrawal_processed"
	TemplateDepositProcessed     = "deposit_processed"
)

var templates = map[string]emailTemplate{
	TemplateAppointmentBooked: newTemplate(TemplateAppointmentBooked,
		"New booking {{.booking_code}}",
		"Hi {{.name}},\nYou have a new booking request {{.booking_code}} for {{.scheduled}}."),
	TemplateAppointmentApproved: newTemplate(TemplateAppointmentApproved,
		"Your appointment {{.booking_code}} is approved",
		"Hi {{.name}},\nYour appointment {{.booking_code}} on {{.scheduled}} has been approved."),
	TemplateAppointmentCanceled: newTemplate(TemplateAppointmentCanceled,
		"Appointment {{.booking_code}} canceled",
		"Hi {{.name}},\nAppointment {{.booking_code}} was canceled. {{.amount}} has been returned to your wallet."),
	TemplateAppointmentCompleted: newTemplate(TemplateAppointmentCompleted,
		"Appointment {{.booking_code}} completed",
		"Hi {{.name}},\nAppointment {{.booking_code}} is complete. Thank you for using Stylebook."),
	TemplateDisputeFiled: newTemplate(TemplateDisputeFiled,
		"Dispute opened for {{.booking_code}}",
		"Hi {{.name}},\nA dispute was opened for appointment {{.booking_code}}. Our team will review it."),
	TemplateDisputeResolved: newTemplate(TemplateDisputeResolved,
		"Dispute for {{.booking_code}} resolved",
		"Hi {{.name}},\nThe dispute for {{.booking_code}} was resolved: {{.resolution}}."),
	TemplateWithdrawalProcessed: newTemplate(TemplateWithdrawalProcessed,
		"Withdrawal {{.status}}",
		"Hi {{.name}},\nYour withdrawal of {{.amount}} was {{.status}}."),
	TemplateDepositProcessed: newTemplate(TemplateDepositProcessed,
		"Deposit {{.status}}",
		"Hi {{.name}},\nYour deposit of {{.amount}} was {{.status}}."),
}

// Render fills the named template with data.
func Render(name string, data map[string]string) (Message, error) {
	t, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	var subject, text, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func (m *SMTPMailer) Send(_ context.Context, to string, msg Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", to)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Text)
	gm.AddAlternative("text/html", msg.HTML)
	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs instead of sending. Used when SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, to string, msg Message) error {
	m.Logger.InfoContext(ctx, "email", "to", to, "subject", msg.Subject)
	return nil
}
