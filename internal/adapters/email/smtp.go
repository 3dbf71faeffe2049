package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

const defaultSendTimeout = 15 * time.Second

// SMTPConfig carries the outbound mail settings. Host and Username empty
// means the deployment runs without email delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds one complete dial-and-send conversation.
	Timeout time.Duration
}

// SMTPSender delivers contract emails over authenticated SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	sendFn func(*gomail.Message) error
}

var _ ports.EmailSender = (*SMTPSender)(nil)

// NewSMTPSender builds the sender. A sender with incomplete config reports
// Enabled() == false and refuses to send.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	s := &SMTPSender{cfg: cfg}
	if s.Enabled() {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		s.sendFn = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	}
	return s
}

func (s *SMTPSender) Enabled() bool {
	return s.cfg.Host != "" && s.cfg.Username != ""
}

// Send runs the SMTP conversation under the configured deadline. The dialer
// itself sets no socket deadlines, so an unresponsive peer would otherwise
// block until the OS TCP stack gives up; the post-settlement workflow runs
// inside webhook requests and must never wait that long.
func (s *SMTPSender) Send(ctx context.Context, msg ports.EmailMessage) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("email sender is not configured")
	}

	from := s.cfg.From
	if from == "" {
		from = s.cfg.Username
	}
	messageID := uuid.NewString()

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", messageID, s.cfg.Host))
	m.SetBody("text/html", msg.Body)
	if len(msg.Attachment) > 0 {
		m.Attach(msg.AttachmentName, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := io.Copy(w, bytes.NewReader(msg.Attachment))
			return err
		}))
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// Buffered so an abandoned send can finish whenever its socket dies.
	errCh := make(chan error, 1)
	go func() { errCh <- s.sendFn(m) }()

	select {
	case <-sendCtx.Done():
		return "", fmt.Errorf("send email: %w", sendCtx.Err())
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("send email: %w", err)
		}
	}
	return messageID, nil
}
