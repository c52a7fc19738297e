package notifier

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mail delivers alert text over SMTP with STARTTLS when credentials are set.
type Mail struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

func NewMail(host string, port int, username, password, from string, recipients []string) *Mail {
	return &Mail{
		Host:       host,
		Port:       port,
		Username:   username,
		Password:   password,
		From:       from,
		Recipients: recipients,
	}
}

func (m *Mail) SendText(text string) error {
	if m.Host == "" || len(m.Recipients) == 0 {
		return fmt.Errorf("mail configuration incomplete")
	}
	subject := insufficientFundsSubject
	if idx := strings.Index(text, "\n"); idx > 0 {
		subject = text[:idx]
		text = strings.TrimLeft(text[idx:], "\n")
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.From, strings.Join(m.Recipients, ", "), subject, text)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, m.Recipients, []byte(msg))
}
