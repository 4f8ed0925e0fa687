package message

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"productivity-hub/pkg/types"
)

const (
	DefaultSendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"
	DefaultResendEndpoint   = "https://api.resend.com/emails"
)

// SendGrid 邮件
//
// data: recipients(逗号分隔)、subject、content
// 配置: apiKey、fromEmail
type SendGrid struct {
	client   *http.Client
	endpoint string
}

func NewSendGrid(client *http.Client, endpoint string) *SendGrid {
	if endpoint == "" {
		endpoint = DefaultSendGridEndpoint
	}
	return &SendGrid{client: client, endpoint: endpoint}
}

func (s *SendGrid) Name() string { return ChannelSendGrid }

func (s *SendGrid) ConfigKeys() []string { return []string{"apiKey", "fromEmail"} }

func (s *SendGrid) Send(ctx context.Context, data types.Extras, cfg map[string]string) (string, error) {
	recipients := splitList(data.GetStringOr("recipients", ""))
	if len(recipients) == 0 {
		return "", fmt.Errorf("sendgrid recipients is required")
	}
	apiKey, fromEmail := cfg["apiKey"], cfg["fromEmail"]
	if apiKey == "" || fromEmail == "" {
		return "", fmt.Errorf("sendgrid apiKey and fromEmail must be configured")
	}

	to := make([]map[string]string, 0, len(recipients))
	for _, r := range recipients {
		to = append(to, map[string]string{"email": r})
	}
	payload := map[string]any{
		"personalizations": []map[string]any{{"to": to}},
		"from":             map[string]string{"email": fromEmail},
		"subject":          data.GetStringOr("subject", ""),
		"content":          []map[string]string{{"type": "text/plain", "value": data.GetStringOr("content", "")}},
	}

	header := http.Header{"Authorization": {"Bearer " + apiKey}}
	body, err := postJSON(ctx, s.client, s.endpoint, header, payload)
	if err != nil {
		return "", fmt.Errorf("sendgrid: %w", err)
	}
	detail := fmt.Sprintf("sendgrid accepted %d recipient(s)", len(recipients))
	if body = strings.TrimSpace(body); body != "" {
		detail += ", body=" + body
	}
	return detail, nil
}

// Resend 邮件
//
// data: title、html
// 配置: apiKey、toEmail(逗号分隔)、fromEmail
type Resend struct {
	client   *http.Client
	endpoint string
}

func NewResend(client *http.Client, endpoint string) *Resend {
	if endpoint == "" {
		endpoint = DefaultResendEndpoint
	}
	return &Resend{client: client, endpoint: endpoint}
}

func (r *Resend) Name() string { return ChannelResend }

func (r *Resend) ConfigKeys() []string { return []string{"apiKey", "toEmail", "fromEmail"} }

func (r *Resend) Send(ctx context.Context, data types.Extras, cfg map[string]string) (string, error) {
	title, err := requireField(data, ChannelResend, "title")
	if err != nil {
		return "", err
	}
	html, err := requireField(data, ChannelResend, "html")
	if err != nil {
		return "", err
	}
	apiKey := cfg["apiKey"]
	if apiKey == "" {
		return "", fmt.Errorf("resend apiKey is not configured")
	}
	to := splitList(cfg["toEmail"])
	if len(to) == 0 {
		return "", fmt.Errorf("resend toEmail is not configured")
	}

	payload := map[string]any{
		"from":    cfg["fromEmail"],
		"to":      to,
		"subject": title,
		"html":    html,
	}
	header := http.Header{"Authorization": {"Bearer " + apiKey}}
	body, err := postJSON(ctx, r.client, r.endpoint, header, payload)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil || resp.ID == "" {
		return "resend accepted", nil
	}
	return "resend accepted: email_id=" + resp.ID, nil
}
