package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-guard/internal/core"
	"go.uber.org/zap"
)

// SMTPFilter implements an SMTP content filter: it accepts inbound mail,
// scores it, stamps phishing headers and re-injects the message into the
// upstream MTA.
type SMTPFilter struct {
	service         *core.ScoringService
	logger          *zap.Logger
	listenAddr      string
	server          *smtp.Server
	blockHighRisk   bool
	statusHeader    string
	scoreHeader     string
	riskHeader      string
	reasonHeader    string
	upstreamAddr    string
	upstreamPort    int
	upstreamEnabled bool
	subjectPrefix   string
	modifySubject   bool
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(
	service *core.ScoringService,
	logger *zap.Logger,
	listenAddr string,
	blockHighRisk bool,
	statusHeader string,
	scoreHeader string,
	riskHeader string,
	reasonHeader string,
	upstreamAddr string,
	upstreamPort int,
	upstreamEnabled bool,
	subjectPrefix string,
	modifySubject bool,
) *SMTPFilter {
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = "[PHISHING?] "
	}

	return &SMTPFilter{
		service:         service,
		logger:          logger,
		listenAddr:      listenAddr,
		blockHighRisk:   blockHighRisk,
		statusHeader:    statusHeader,
		scoreHeader:     scoreHeader,
		riskHeader:      riskHeader,
		reasonHeader:    reasonHeader,
		upstreamAddr:    upstreamAddr,
		upstreamPort:    upstreamPort,
		upstreamEnabled: upstreamEnabled,
		subjectPrefix:   subjectPrefix,
		modifySubject:   modifySubject,
	}
}

// Start starts the SMTP filter service
func (f *SMTPFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP filter service
func (f *SMTPFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// sendUpstream re-injects the processed email into the upstream MTA
func (f *SMTPFilter) sendUpstream(sender string, recipients []string, emailData []byte) error {
	upstreamAddr := fmt.Sprintf("%s:%d", f.upstreamAddr, f.upstreamPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", upstreamAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to upstream MTA: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for the filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message, stamps headers and forwards it upstream
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.filter.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	email := core.EmailInput{
		Sender:  s.sender,
		Subject: subject,
		Snippet: textContent,
	}

	senderDomain := "unknown"
	if parts := strings.Split(s.sender, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Score never fails; internal faults degrade to a fixed medium result.
	result := s.filter.service.Score(ctx, email)

	if result.RiskLevel == core.RiskHigh && s.filter.blockHighRisk {
		s.filter.logger.Info("Rejecting high-risk email",
			zap.String("from", s.sender),
			zap.String("sender_domain", senderDomain),
			zap.Int("score", result.Score),
			zap.String("reason", result.ConfidenceText))
		return fmt.Errorf("550 Rejected as likely phishing (score: %d)", result.Score)
	}

	// Prepend our headers, then the original headers and body.
	var modified bytes.Buffer
	fmt.Fprintf(&modified, "%s: %t\r\n", s.filter.statusHeader, result.RiskLevel != core.RiskLow)
	fmt.Fprintf(&modified, "%s: %d\r\n", s.filter.scoreHeader, result.Score)
	fmt.Fprintf(&modified, "%s: %s\r\n", s.filter.riskHeader, result.RiskLevel)
	fmt.Fprintf(&modified, "%s: %s\r\n", s.filter.reasonHeader, strings.Join(result.Reasons, "; "))

	prefixSubject := result.RiskLevel == core.RiskHigh && s.filter.modifySubject && s.filter.subjectPrefix != ""
	for key, values := range msg.Header {
		if prefixSubject && strings.EqualFold(key, "Subject") {
			continue
		}
		for _, value := range values {
			fmt.Fprintf(&modified, "%s: %s\r\n", key, value)
		}
	}
	if prefixSubject && !strings.HasPrefix(subject, s.filter.subjectPrefix) {
		fmt.Fprintf(&modified, "Subject: %s%s\r\n", s.filter.subjectPrefix, subject)
	} else if prefixSubject {
		fmt.Fprintf(&modified, "Subject: %s\r\n", subject)
	}
	fmt.Fprintf(&modified, "\r\n")

	// Preserve the original body bytes (MIME parts and attachments intact).
	bodyStart := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStart >= 0 {
		modified.Write(rawData[bodyStart+4:])
	} else if bodyStart = bytes.Index(rawData, []byte("\n\n")); bodyStart >= 0 {
		modified.Write(rawData[bodyStart+2:])
	}

	if s.filter.upstreamEnabled {
		if err := s.filter.sendUpstream(s.sender, s.recipients, modified.Bytes()); err != nil {
			s.filter.logger.Error("Failed to forward email upstream",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Upstream forwarding disabled, message dropped after scoring")
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.String("sender_domain", senderDomain),
		zap.Int("score", result.Score),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Bool("used_remote", result.UsedRemote))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
