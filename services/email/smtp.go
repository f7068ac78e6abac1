package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"freshcart-api/models"
)

type SMTPConfig struct {
	Host          string
	Port          string
	Username      string
	Password      string
	From          string
	FromName      string
	SkipTLSVerify bool
}

type SMTPService struct {
	config SMTPConfig
}

func NewSMTPService(config SMTPConfig) *SMTPService {
	if config.FromName == "" {
		config.FromName = "FreshCart"
	}
	return &SMTPService{
		config: config,
	}
}

func (s *SMTPService) SendEmail(to, subject, body string) error {
	conn, err := net.Dial("tcp", net.JoinHostPort(s.config.Host, s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: s.config.SkipTLSVerify,
			ServerName:         s.config.Host,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to create email body writer: %w", err)
	}

	if _, err = w.Write([]byte(buildMessage(s.config.FromName, s.config.From, to, subject, body))); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close email body writer: %w", err)
	}

	return client.Quit()
}

func buildMessage(fromName, from, to, subject, body string) string {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n",
		fromName, from, to, subject,
	)
	return headers + body
}

func (s *SMTPService) SendOrderConfirmation(to string, order *models.Order) error {
	body, err := RenderOrderConfirmation(order)
	if err != nil {
		return err
	}
	return s.SendEmail(to, fmt.Sprintf("Your FreshCart order %s", order.ID), body)
}

func (s *SMTPService) SendDeliveryRequestAlert(to string, req *models.DeliveryRequest) error {
	body, err := RenderDeliveryRequestAlert(req)
	if err != nil {
		return err
	}
	return s.SendEmail(to, fmt.Sprintf("Delivery requested for pin code %s", req.PinCode), body)
}
