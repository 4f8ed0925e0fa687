package message

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"productivity-hub/pkg/types"
)

const (
	dingTalkTitleMax     = 32
	dingTalkDefaultTitle = "DingTalk Notification"
	dingTalkLinkURL      = "https://www.dingtalk.com/"
)

// DingTalk 钉钉群机器人
//
// data: msgType(text|markdown|link)、content、atMobiles(可选，逗号分隔)
// 配置: webhook，sign(可选，为空时不加签)
type DingTalk struct {
	client *http.Client
	now    func() time.Time
}

func NewDingTalk(client *http.Client) *DingTalk {
	return &DingTalk{client: client, now: time.Now}
}

func (d *DingTalk) Name() string { return ChannelDingTalk }

func (d *DingTalk) ConfigKeys() []string { return []string{"webhook", "sign"} }

func (d *DingTalk) Send(ctx context.Context, data types.Extras, cfg map[string]string) (string, error) {
	msgType, err := requireField(data, ChannelDingTalk, "msgType")
	if err != nil {
		return "", err
	}
	content, err := requireField(data, ChannelDingTalk, "content")
	if err != nil {
		return "", err
	}
	webhook := strings.TrimSpace(cfg["webhook"])
	if webhook == "" {
		return "", fmt.Errorf("dingtalk webhook is not configured")
	}

	target := signWebhook(webhook, cfg["sign"], d.now())
	payload := dingTalkPayload(msgType, content, splitList(data.GetStringOr("atMobiles", "")))

	body, err := postJSON(ctx, d.client, target, nil, payload)
	if err != nil {
		return "", fmt.Errorf("dingtalk: %w", err)
	}
	if body == "" {
		return "DingTalk message sent successfully", nil
	}
	return body, nil
}

// signWebhook 追加 timestamp 和 HmacSHA256 签名
func signWebhook(webhook, secret string, now time.Time) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return webhook
	}
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "\n" + secret))
	sign := url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	delimiter := "?"
	if strings.Contains(webhook, "?") {
		delimiter = "&"
	}
	return webhook + delimiter + "timestamp=" + ts + "&sign=" + sign
}

func dingTalkPayload(msgType, content string, atMobiles []string) map[string]any {
	if atMobiles == nil {
		atMobiles = []string{}
	}
	at := map[string]any{"atMobiles": atMobiles, "isAtAll": false}

	switch msgType {
	case "markdown":
		return map[string]any{
			"msgtype":  "markdown",
			"markdown": map[string]any{"title": dingTalkTitle(content), "text": content},
			"at":       at,
		}
	case "link":
		return map[string]any{
			"msgtype": "link",
			"link": map[string]any{
				"title":      dingTalkTitle(content),
				"text":       content,
				"messageUrl": dingTalkLinkURL,
			},
		}
	default:
		return map[string]any{
			"msgtype": "text",
			"text":    map[string]any{"content": content},
			"at":      at,
		}
	}
}

// dingTalkTitle 取内容前32个字符
func dingTalkTitle(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return dingTalkDefaultTitle
	}
	if utf8.RuneCountInString(content) <= dingTalkTitleMax {
		return content
	}
	return string([]rune(content)[:dingTalkTitleMax])
}
