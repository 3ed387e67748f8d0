// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// implicitTLSPort is the submission port that expects TLS from the first byte.
const implicitTLSPort = 465

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a whole delivery when ctx has no deadline.
	Timeout time.Duration
	// TLSConfig overrides the TLS settings. ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SMTPSender delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when the server offers it.
// Authentication is skipped when Username is empty.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender validates cfg and creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.With("port", cfg.Port).Errorf("smtp port out of range")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, oops.With("from", cfg.From).Wrapf(err, "invalid sender address")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.Timeout)
	}

	dialer := &net.Dialer{Deadline: deadline}
	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == implicitTLSPort {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return oops.With("operation", "dial smtp").With("addr", addr).Wrap(err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return oops.With("operation", "set deadline").Wrap(err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return oops.With("operation", "smtp handshake").With("addr", addr).Wrap(err)
	}
	defer client.Close()

	if s.cfg.Port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return oops.With("operation", "starttls").Wrap(err)
			}
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return oops.With("operation", "smtp auth").Wrap(err)
		}
	}

	from, err := mail.ParseAddress(s.cfg.From)
	if err != nil {
		return oops.With("operation", "parse sender").Wrap(err)
	}
	if err := client.Mail(from.Address); err != nil {
		return oops.With("operation", "mail from").Wrap(err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return oops.With("operation", "rcpt to").Wrap(err)
	}

	w, err := client.Data()
	if err != nil {
		return oops.With("operation", "data").Wrap(err)
	}
	if _, err := w.Write(buildMessage(s.cfg.From, msg, time.Now())); err != nil {
		return oops.With("operation", "write message").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.With("operation", "finish message").Wrap(err)
	}
	if err := client.Quit(); err != nil {
		return oops.With("operation", "quit").Wrap(err)
	}
	return nil
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	if s.cfg.TLSConfig != nil {
		cfg := s.cfg.TLSConfig.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = s.cfg.Host
		}
		return cfg
	}
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// buildMessage renders the RFC 5322 headers and body.
func buildMessage(from string, msg Message, now time.Time) []byte {
	contentType := "text/plain; charset=\"utf-8\""
	if msg.HTML {
		contentType = "text/html; charset=\"utf-8\""
	}

	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}
	writeHeader("From", from)
	writeHeader("To", msg.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", contentType)
	writeHeader("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}
