package message

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"productivity-hub/pkg/types"
)

// 渠道名
const (
	ChannelDingTalk = "dingtalk"
	ChannelSendGrid = "sendgrid"
	ChannelResend   = "resend"
)

// Channel 消息渠道
type Channel interface {
	Name() string
	// ConfigKeys 需要从配置中读取的键，实际配置键为 <渠道名>.<键>
	ConfigKeys() []string
	// Send 发送消息，返回渠道响应摘要
	Send(ctx context.Context, data types.Extras, cfg map[string]string) (string, error)
}

// maxResponseBody 记录的响应体上限
const maxResponseBody = 4096

// postJSON 发送JSON请求，非2xx视为失败
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return string(respBody), nil
}

// splitList 逗号分隔，去空白和空项
func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func requireField(data types.Extras, channel, key string) (string, error) {
	value := strings.TrimSpace(data.GetStringOr(key, ""))
	if value == "" {
		return "", fmt.Errorf("%s %s is required", channel, key)
	}
	return value, nil
}
