package message

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/internal/data"
	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
	"productivity-hub/pkg/types"
)

// capturedRequest 测试服务器收到的请求
type capturedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
}

type captureServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func newCaptureServer(t *testing.T, status int, response string) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		cs.mu.Lock()
		cs.requests = append(cs.requests, capturedRequest{Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone(), Body: body})
		cs.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) last(t *testing.T) capturedRequest {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotEmpty(t, cs.requests)
	return cs.requests[len(cs.requests)-1]
}

func newTestService(t *testing.T, channels ...Channel) (*Service, *ConfigStore) {
	t.Helper()
	ids, err := idgen.NewService(idgen.Config{}, nil)
	require.NoError(t, err)
	db := data.NewTestDB(t, Models()...)
	store := NewConfigStore(db, ids)
	return NewService(db, ids, store, channels, nil), store
}

func TestSignWebhook(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "https://hook/robot", signWebhook("https://hook/robot", " ", now), "无密钥不加签")

	signed := signWebhook("https://hook/robot?access_token=abc", "SECabc", now)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Query().Get("access_token"))
	assert.Equal(t, "1700000000123", u.Query().Get("timestamp"))

	mac := hmac.New(sha256.New, []byte("SECabc"))
	mac.Write([]byte("1700000000123\nSECabc"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), u.Query().Get("sign"))
}

func TestDingTalkPayload(t *testing.T) {
	t.Run("文本", func(t *testing.T) {
		p := dingTalkPayload("text", "hello", []string{"138"})
		assert.Equal(t, "text", p["msgtype"])
		assert.Equal(t, map[string]any{"content": "hello"}, p["text"])
		assert.Equal(t, []string{"138"}, p["at"].(map[string]any)["atMobiles"])
	})

	t.Run("未知类型按文本", func(t *testing.T) {
		p := dingTalkPayload("card", "hello", nil)
		assert.Equal(t, "text", p["msgtype"])
		assert.Equal(t, []string{}, p["at"].(map[string]any)["atMobiles"])
	})

	t.Run("markdown标题截断", func(t *testing.T) {
		content := strings.Repeat("字", 40)
		p := dingTalkPayload("markdown", content, nil)
		md := p["markdown"].(map[string]any)
		assert.Equal(t, strings.Repeat("字", 32), md["title"])
		assert.Equal(t, content, md["text"])
	})

	t.Run("链接", func(t *testing.T) {
		p := dingTalkPayload("link", "短内容", nil)
		link := p["link"].(map[string]any)
		assert.Equal(t, "短内容", link["title"])
		assert.Equal(t, dingTalkLinkURL, link["messageUrl"])
		assert.NotContains(t, p, "at")
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, splitList(" a@x.com, ,b@x.com,"))
	assert.Nil(t, splitList(""))
}

func TestSendDingTalk(t *testing.T) {
	ctx := context.Background()
	hook := newCaptureServer(t, http.StatusOK, `{"errcode":0,"errmsg":"ok"}`)
	svc, store := newTestService(t, NewDingTalk(hook.Client()))

	require.NoError(t, store.SetUserValue(ctx, "u1", "dingtalk", "dingtalk.webhook", hook.URL+"/robot/send?access_token=t"))
	require.NoError(t, store.SetUserValue(ctx, "u1", "dingtalk", "dingtalk.sign", "SEC1"))

	resp, err := svc.SendMessage(ctx, &SendDTO{
		Channel: "dingtalk",
		Data:    types.Extras{"msgType": "text", "content": "构建完成", "atMobiles": "138,139"},
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)
	assert.True(t, strings.HasPrefix(resp.RequestID, RequestIDPrefix))
	assert.Equal(t, "message delivered", resp.Detail)

	req := hook.last(t)
	assert.Equal(t, "/robot/send", req.Path)
	assert.Equal(t, "t", req.Query.Get("access_token"))
	assert.NotEmpty(t, req.Query.Get("sign"))
	assert.Equal(t, "text", req.Body["msgtype"])

	page, err := svc.History(ctx, 1, 10, "u1")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, resp.RequestID, page.Items[0].ID)
	assert.Equal(t, "dingtalk", page.Items[0].Channel)
	assert.Equal(t, StatusSuccess, page.Items[0].Status)
	assert.Equal(t, "构建完成", page.Items[0].Request["content"])
	assert.Contains(t, page.Items[0].Response, "errcode")
}

func TestSendFailures(t *testing.T) {
	ctx := context.Background()
	failing := newCaptureServer(t, http.StatusBadGateway, "upstream down")
	svc, store := newTestService(t, NewDingTalk(failing.Client()))
	require.NoError(t, store.SetUserValue(ctx, "u1", "dingtalk", "dingtalk.webhook", failing.URL))

	t.Run("渠道返回错误状态", func(t *testing.T) {
		resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "dingtalk", Data: types.Extras{"msgType": "text", "content": "x"}}, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, resp.Status)
		assert.Contains(t, resp.Detail, "502")
	})

	t.Run("缺少内容", func(t *testing.T) {
		resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "dingtalk", Data: types.Extras{"msgType": "text"}}, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, resp.Status)
		assert.Contains(t, resp.Detail, "content is required")
	})

	t.Run("未配置webhook", func(t *testing.T) {
		resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "dingtalk", Data: types.Extras{"msgType": "text", "content": "x"}}, "u2")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, resp.Status)
		assert.Contains(t, resp.Detail, "webhook is not configured")
	})

	t.Run("不支持的渠道", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, &SendDTO{Channel: "sms", Data: types.Extras{}}, "u1")
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	t.Run("缺少参数", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, &SendDTO{Channel: "dingtalk"}, "u1")
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
		_, err = svc.SendMessage(ctx, nil, "u1")
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	page, err := svc.History(ctx, 1, 10, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total, "失败的发送也有记录")
}

func TestSystemUserUsesTemplate(t *testing.T) {
	ctx := context.Background()
	api := newCaptureServer(t, http.StatusOK, `{"id":"email-1"}`)
	svc, store := newTestService(t, NewResend(api.Client(), api.URL+"/emails"))

	require.NoError(t, store.SetTemplate(ctx, "resend", "resend.apiKey", "re_tpl", "admin"))
	require.NoError(t, store.SetTemplate(ctx, "resend", "resend.toEmail", "a@x.com, b@x.com", "admin"))
	require.NoError(t, store.SetTemplate(ctx, "resend", "resend.fromEmail", "hub@x.com", "admin"))
	require.NoError(t, store.SetUserValue(ctx, "u1", "resend", "resend.apiKey", "re_user"))

	resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "resend", Data: types.Extras{"title": "日报", "html": "<p>ok</p>"}}, TemplateUser)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)

	req := api.last(t)
	assert.Equal(t, "/emails", req.Path)
	assert.Equal(t, "Bearer re_tpl", req.Header.Get("Authorization"))
	assert.Equal(t, []any{"a@x.com", "b@x.com"}, req.Body["to"])
	assert.Equal(t, "hub@x.com", req.Body["from"])
	assert.Equal(t, "日报", req.Body["subject"])

	page, err := svc.History(ctx, 1, 10, TemplateUser)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Contains(t, page.Items[0].Response, "email-1")
}

func TestSendGrid(t *testing.T) {
	ctx := context.Background()
	api := newCaptureServer(t, http.StatusAccepted, "")
	svc, store := newTestService(t, NewSendGrid(api.Client(), api.URL+"/v3/mail/send"))

	require.NoError(t, store.SetUserValue(ctx, "u1", "sendgrid", "sendgrid.apiKey", "SG.key"))

	t.Run("缺少发件人配置", func(t *testing.T) {
		resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "sendgrid", Data: types.Extras{"recipients": "a@x.com"}}, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, resp.Status)
	})

	require.NoError(t, store.SetUserValue(ctx, "u1", "sendgrid", "sendgrid.fromEmail", "hub@x.com"))

	t.Run("多个收件人", func(t *testing.T) {
		resp, err := svc.SendMessage(ctx, &SendDTO{Channel: "sendgrid", Data: types.Extras{
			"recipients": "a@x.com,b@x.com", "subject": "hi", "content": "body",
		}}, "u1")
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, resp.Status)

		req := api.last(t)
		assert.Equal(t, "Bearer SG.key", req.Header.Get("Authorization"))
		assert.Equal(t, "hi", req.Body["subject"])
		personalizations := req.Body["personalizations"].([]any)
		to := personalizations[0].(map[string]any)["to"].([]any)
		assert.Len(t, to, 2)
	})
}

func TestHistoryPaging(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		svc.saveHistory(ctx, &HistoryPO{
			ID:        RequestIDPrefix + string(rune('a'+i)),
			UserID:    "u1",
			Channel:   ChannelDingTalk,
			Status:    StatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc.saveHistory(ctx, &HistoryPO{ID: "req-other", UserID: "u2", Channel: ChannelResend, Status: StatusFailed, CreatedAt: base})

	tests := []struct {
		name         string
		pageNum      int
		pageSize     int
		wantNum      int
		wantSize     int
		wantFirstID  string
		wantItemsLen int
	}{
		{"首页按时间倒序", 1, 2, 1, 2, "req-e", 2},
		{"页码小于1", 0, 2, 1, 2, "req-e", 2},
		{"页大小小于1", 1, 0, 1, 1, "req-e", 1},
		{"页大小超过上限", 1, 500, 1, 100, "req-e", 5},
		{"最后一页", 3, 2, 3, 2, "req-a", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.History(ctx, tt.pageNum, tt.pageSize, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(5), page.Total)
			assert.Equal(t, tt.wantNum, page.PageNum)
			assert.Equal(t, tt.wantSize, page.PageSize)
			require.Len(t, page.Items, tt.wantItemsLen)
			assert.Equal(t, tt.wantFirstID, page.Items[0].ID)
			assert.NotNil(t, page.Items[0].Request)
		})
	}
}

func TestConfigStore(t *testing.T) {
	ctx := context.Background()
	_, store := newTestService(t)

	require.NoError(t, store.SetTemplate(ctx, "dingtalk", "dingtalk.webhook", "tpl", "admin"))
	require.NoError(t, store.SetTemplate(ctx, "dingtalk", "dingtalk.webhook", "tpl2", "admin"))
	require.NoError(t, store.SetUserValue(ctx, "u1", "dingtalk", "dingtalk.webhook", "mine"))

	v, ok, err := store.Value(ctx, "dingtalk", "dingtalk.webhook", TemplateUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tpl2", v, "重复写入覆盖")

	v, ok, err = store.Value(ctx, "dingtalk", "dingtalk.webhook", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mine", v)

	_, ok, err = store.Value(ctx, "dingtalk", "dingtalk.webhook", "u2")
	require.NoError(t, err)
	assert.False(t, ok, "用户配置不回落到模板")

	_, _, err = store.Value(ctx, "", "k", "u1")
	assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	_, _, err = store.Value(ctx, "m", "k", "")
	assert.Equal(t, errs.CodeUnauthorized, errs.Code(err))
}
