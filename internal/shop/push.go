package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"productivity-hub/internal/message"
	"productivity-hub/pkg/types"
)

// 推送时间窗：工作日 [pushStartHour, pushEndHour] 整点，跳过 [quietStartHour, quietEndHour]
const (
	pushStartHour  = 9
	pushEndHour    = 18
	quietStartHour = 11
	quietEndHour   = 15
)

// Sender 消息发送，由 message.Service 实现
type Sender interface {
	SendMessage(ctx context.Context, dto *message.SendDTO, userID string) (*message.SendResponseVO, error)
}

// Fetcher 商品来源
type Fetcher interface {
	FetchCommodities(ctx context.Context) ([]CommodityVO, error)
}

// Pusher 定时把库存表格推送到钉钉群，使用系统级钉钉配置
type Pusher struct {
	fetcher Fetcher
	sender  Sender
	logger  *zap.Logger
	now     func() time.Time
	loc     *time.Location
}

// PusherOption 推送选项
type PusherOption func(*Pusher)

// WithPushClock 替换时钟
func WithPushClock(now func() time.Time) PusherOption {
	return func(p *Pusher) { p.now = now }
}

// WithPushLocation 时间窗与播报时间使用的时区
func WithPushLocation(loc *time.Location) PusherOption {
	return func(p *Pusher) { p.loc = loc }
}

func NewPusher(fetcher Fetcher, sender Sender, logger *zap.Logger, opts ...PusherOption) *Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pusher{
		fetcher: fetcher,
		sender:  sender,
		logger:  logger.Named("shop.push"),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ErrPushFailed 钉钉渠道返回失败
var ErrPushFailed = errors.New("shop: dingtalk push failed")

// Push 拉取一次并推送，没有商品时跳过，返回推送的商品数
func (p *Pusher) Push(ctx context.Context) (int, error) {
	items, err := p.fetcher.FetchCommodities(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		p.logger.Info("no commodities, skip push")
		return 0, nil
	}

	data := types.NewExtras(2)
	data.Set("msgType", "markdown")
	data.Set("content", BuildMarkdown(items, p.now().In(p.loc)))
	resp, err := p.sender.SendMessage(ctx, &message.SendDTO{Channel: message.ChannelDingTalk, Data: data}, message.TemplateUser)
	if err != nil {
		return 0, err
	}
	if resp.Status != message.StatusSuccess {
		return 0, fmt.Errorf("%w: %s", ErrPushFailed, resp.Detail)
	}
	return len(items), nil
}

// Run 在每个允许的整点推送，直到 ctx 取消
func (p *Pusher) Run(ctx context.Context) {
	next := NextPushTime(p.now().In(p.loc))
	for {
		p.logger.Debug("next commodity push", zap.Time("at", next))
		timer := time.NewTimer(next.Sub(p.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := p.Push(ctx)
		if err != nil {
			p.logger.Error("commodity push failed", zap.Error(err))
		} else if n > 0 {
			p.logger.Info("commodity push sent", zap.Int("count", n))
		}
		// 以计划时间为基准，避免同一整点重复触发
		next = NextPushTime(next.Add(time.Nanosecond))
	}
}

// NextPushTime from 之后（含整点本身）第一个允许推送的整点，时区取 from 的时区
func NextPushTime(from time.Time) time.Time {
	t := from.Truncate(0)
	hour := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if hour.Before(t) {
		hour = hour.Add(time.Hour)
	}

	for {
		switch {
		case hour.Weekday() == time.Saturday || hour.Weekday() == time.Sunday:
			hour = startOfNextDay(hour)
		case hour.Hour() < pushStartHour:
			hour = time.Date(hour.Year(), hour.Month(), hour.Day(), pushStartHour, 0, 0, 0, hour.Location())
		case hour.Hour() > pushEndHour:
			hour = startOfNextDay(hour)
		case hour.Hour() >= quietStartHour && hour.Hour() <= quietEndHour:
			hour = time.Date(hour.Year(), hour.Month(), hour.Day(), quietEndHour+1, 0, 0, 0, hour.Location())
		default:
			return hour
		}
	}
}

func startOfNextDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, pushStartHour, 0, 0, 0, t.Location())
}

// BuildMarkdown 钉钉 markdown 表格，行尾两个空格强制换行
func BuildMarkdown(items []CommodityVO, now time.Time) string {
	var b strings.Builder
	b.WriteString("**小店库存播报**  \n")
	b.WriteString("更新时间：" + types.FormatDateTime(&now, now.Location()) + "  \n\n")
	b.WriteString("| 商品 | 价格 | 库存 | 销量 | 库存状态 |  \n")
	b.WriteString("| --- | --- | --- | --- | --- |  \n")
	for _, c := range items {
		b.WriteString("| " + escapeCell(c.Name) +
			" | " + formatPrice(c.Price) +
			" | " + intOrDash(c.Stock) +
			" | " + intOrDash(c.OrderSold) +
			" | " + c.StockStateText + " |  \n")
	}
	return b.String()
}

func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// formatPrice 去掉小数末尾的0，"12.50" -> "12.5"，"3.00" -> "3"
func formatPrice(price json.Number) string {
	s := strings.TrimSpace(price.String())
	if s == "" {
		return "-"
	}
	if strings.ContainsAny(s, "eE") {
		if f, err := price.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return s
	}
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func intOrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

var _ Sender = (*message.Service)(nil)
