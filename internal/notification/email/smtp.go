package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 20 * time.Second

// Message is one outgoing email. Recipients are blind-copied so addresses stay private.
type Message struct {
	Bcc     []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	Timeout  time.Duration
}

// SMTPSender sends mail over SMTP with implicit TLS on port 465 and mandatory STARTTLS otherwise.
type SMTPSender struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPSender builds a sender that authenticates as cfg.Username and sends from that address.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("email: smtp credentials not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(timeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.Username, fromName: cfg.FromName}, nil
}

// Send delivers msg to the sender's own address with every recipient in Bcc.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.newMsg(msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

// newMsg builds the go-mail message. With a text part the body is multipart/alternative with
// text/plain first and text/html last, so clients prefer the HTML.
func (s *SMTPSender) newMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.from); err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	if err := m.To(s.from); err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}
	if err := m.Bcc(msg.Bcc...); err != nil {
		return nil, fmt.Errorf("email: bcc: %w", err)
	}
	m.Subject(msg.Subject)
	if msg.Text == "" {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
		return m, nil
	}
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
