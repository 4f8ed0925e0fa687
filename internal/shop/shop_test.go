package shop

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/internal/config"
	"productivity-hub/internal/errs"
	"productivity-hub/internal/message"
)

const sampleBody = `{"code":200,"msg":"ok","data":[
 {"id":1,"name":"A|号","price":"12.50","stock":3,"order_sold":10,"stock_state":1},
 null,
 {"id":2,"name":"B","price":8,"stock_state":7}
]}`

func newSource(t *testing.T, status int, body string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	ua := &atomic.Value{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, ua
}

// deadURL 已关闭的服务地址，连接会被拒绝
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestStockStateText(t *testing.T) {
	state := func(v int) *int { return &v }
	tests := []struct {
		name  string
		state *int
		want  string
	}{
		{"缺失", nil, "-"},
		{"缺货", state(0), "缺货"},
		{"紧张", state(1), "紧张"},
		{"充足", state(2), "充足"},
		{"未知值原样输出", state(9), "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StockStateText(tt.state))
		})
	}
}

func TestFetchCommodities(t *testing.T) {
	ctx := context.Background()

	t.Run("解析并跳过空项", func(t *testing.T) {
		srv, ua := newSource(t, http.StatusOK, sampleBody)
		svc := NewService(config.ShopConfig{CommodityURL: srv.URL, UserAgent: "hub-test"}, nil)

		items, err := svc.FetchCommodities(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, int64(1), *items[0].ID)
		assert.Equal(t, json.Number("12.50"), items[0].Price)
		assert.Equal(t, int64(10), *items[0].OrderSold)
		assert.Equal(t, "紧张", items[0].StockStateText)
		assert.Nil(t, items[1].Stock)
		assert.Equal(t, "7", items[1].StockStateText)
		assert.Equal(t, "hub-test", ua.Load())
	})

	t.Run("主地址不可达时使用备用地址", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusOK, sampleBody)
		svc := NewService(config.ShopConfig{CommodityURL: deadURL(t), FallbackURL: srv.URL}, nil)

		items, err := svc.FetchCommodities(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("HTTP错误状态不走备用地址", func(t *testing.T) {
		bad, _ := newSource(t, http.StatusBadGateway, "upstream down")
		good, ua := newSource(t, http.StatusOK, sampleBody)
		svc := NewService(config.ShopConfig{CommodityURL: bad.URL, FallbackURL: good.URL}, nil)

		_, err := svc.FetchCommodities(ctx)
		assert.Equal(t, errs.CodeInternal, errs.Code(err))
		assert.Nil(t, ua.Load(), "备用地址不应被调用")
	})

	t.Run("业务码非200", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusOK, `{"code":500,"msg":"busy"}`)
		svc := NewService(config.ShopConfig{CommodityURL: srv.URL}, nil)

		_, err := svc.FetchCommodities(ctx)
		require.Error(t, err)
		assert.Equal(t, errs.CodeInternal, errs.Code(err))
		assert.Contains(t, errs.Message(err), "code=500, msg=busy")
	})

	t.Run("缺少业务码", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusOK, `{"msg":"?"}`)
		svc := NewService(config.ShopConfig{CommodityURL: srv.URL}, nil)

		_, err := svc.FetchCommodities(ctx)
		assert.Contains(t, errs.Message(err), "code=null")
	})

	t.Run("data为空返回空列表", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusOK, `{"code":200,"data":null}`)
		svc := NewService(config.ShopConfig{CommodityURL: srv.URL}, nil)

		items, err := svc.FetchCommodities(ctx)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("空响应体", func(t *testing.T) {
		srv, _ := newSource(t, http.StatusOK, "  ")
		svc := NewService(config.ShopConfig{CommodityURL: srv.URL}, nil)

		_, err := svc.FetchCommodities(ctx)
		assert.Equal(t, errs.CodeInternal, errs.Code(err))
	})

	t.Run("未配置地址", func(t *testing.T) {
		_, err := NewService(config.ShopConfig{}, nil).FetchCommodities(ctx)
		assert.Equal(t, errs.CodeInternal, errs.Code(err))
	})
}

func TestNextPushTime(t *testing.T) {
	at := func(day, hour, minute int) time.Time {
		// 2024-06-03 为周一
		return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"整点本身允许", at(3, 9, 0), at(3, 9, 0)},
		{"对齐到下一整点", at(3, 9, 1), at(3, 10, 0)},
		{"早于9点", at(3, 6, 30), at(3, 9, 0)},
		{"午间静默跳到16点", at(3, 10, 30), at(3, 16, 0)},
		{"静默时段内", at(3, 13, 0), at(3, 16, 0)},
		{"18点整允许", at(3, 17, 59), at(3, 18, 0)},
		{"18点后到次日9点", at(3, 18, 1), at(4, 9, 0)},
		{"周五晚到周一", at(7, 20, 0), at(10, 9, 0)},
		{"周六", at(8, 10, 0), at(10, 9, 0)},
		{"周日深夜", at(9, 23, 59), at(10, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextPushTime(tt.from)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestBuildMarkdown(t *testing.T) {
	id, stock := int64(1), int64(3)
	state := 0
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	md := BuildMarkdown([]CommodityVO{
		{ID: &id, Name: "A|号", Price: "12.50", Stock: &stock, StockState: &state, StockStateText: StockStateText(&state)},
		{Name: "", Price: "3.00", StockStateText: "-"},
		{Name: "C", Price: "1e2", StockStateText: "-"},
	}, now)

	assert.True(t, strings.HasPrefix(md, "**小店库存播报**  \n更新时间：2024-06-03 09:00:00  \n\n"))
	assert.Contains(t, md, "| A\\|号 | 12.5 | 3 | - | 缺货 |  \n")
	assert.Contains(t, md, "| - | 3 | - | - | - |  \n")
	assert.Contains(t, md, "| C | 100 | - | - | - |  \n")
}

type fakeFetcher struct {
	items []CommodityVO
	err   error
}

func (f *fakeFetcher) FetchCommodities(context.Context) ([]CommodityVO, error) {
	return f.items, f.err
}

type fakeSender struct {
	calls  int
	dto    *message.SendDTO
	userID string
	status string
}

func (f *fakeSender) SendMessage(_ context.Context, dto *message.SendDTO, userID string) (*message.SendResponseVO, error) {
	f.calls++
	f.dto, f.userID = dto, userID
	status := f.status
	if status == "" {
		status = message.StatusSuccess
	}
	return &message.SendResponseVO{RequestID: "req-1", Status: status, Detail: "detail"}, nil
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 1, 0, 0, 0, time.UTC)
	shanghai := time.FixedZone("CST", 8*3600)
	opts := []PusherOption{WithPushClock(func() time.Time { return now }), WithPushLocation(shanghai)}

	t.Run("推送markdown到钉钉", func(t *testing.T) {
		sender := &fakeSender{}
		p := NewPusher(&fakeFetcher{items: []CommodityVO{{Name: "A", StockStateText: "-"}}}, sender, nil, opts...)

		n, err := p.Push(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, message.ChannelDingTalk, sender.dto.Channel)
		assert.Equal(t, message.TemplateUser, sender.userID, "使用系统级钉钉配置")
		assert.Equal(t, "markdown", sender.dto.Data.GetStringOr("msgType", ""))
		assert.Contains(t, sender.dto.Data.GetStringOr("content", ""), "更新时间：2024-06-03 09:00:00")
	})

	t.Run("无商品跳过", func(t *testing.T) {
		sender := &fakeSender{}
		n, err := NewPusher(&fakeFetcher{}, sender, nil, opts...).Push(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, sender.calls)
	})

	t.Run("拉取失败", func(t *testing.T) {
		sender := &fakeSender{}
		_, err := NewPusher(&fakeFetcher{err: errors.New("boom")}, sender, nil, opts...).Push(ctx)
		assert.Error(t, err)
		assert.Zero(t, sender.calls)
	})

	t.Run("渠道失败", func(t *testing.T) {
		sender := &fakeSender{status: message.StatusFailed}
		_, err := NewPusher(&fakeFetcher{items: []CommodityVO{{Name: "A"}}}, sender, nil, opts...).Push(ctx)
		assert.ErrorIs(t, err, ErrPushFailed)
	})
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &fakeSender{}
	p := NewPusher(&fakeFetcher{items: []CommodityVO{{Name: "A"}}}, sender, nil)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
