package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"productivity-hub/internal/config"
	"productivity-hub/internal/errs"
)

// maxBody 上游响应体上限
const maxBody = 1 << 20

// Service 商品库存拉取
type Service struct {
	client    *http.Client
	urls      []string
	userAgent string
	logger    *zap.Logger
}

func NewService(cfg config.ShopConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	var urls []string
	for _, u := range []string{cfg.CommodityURL, cfg.FallbackURL} {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return &Service{
		client:    &http.Client{Timeout: timeoutOrDefault(cfg.Timeout)},
		urls:      urls,
		userAgent: cfg.UserAgent,
		logger:    logger.Named("shop"),
	}
}

// FetchCommodities 实时拉取商品列表
//
// 主地址连接失败时改用备用地址；上游 code 不为200或响应无法解析返回500。
// data 为空时返回空列表。
func (s *Service) FetchCommodities(ctx context.Context) ([]CommodityVO, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		s.logger.Error("fetch commodities failed", zap.Error(err))
		return nil, errs.Internal("fetch commodities failed", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errs.New(errs.CodeInternal, "commodity source returned an empty body")
	}

	var resp upstreamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.Internal("decode commodities failed", err)
	}
	if resp.Code == nil || *resp.Code != http.StatusOK {
		code := "null"
		if resp.Code != nil {
			code = fmt.Sprint(*resp.Code)
		}
		return nil, errs.Newf(errs.CodeInternal, "commodity source error, code=%s, msg=%s", code, resp.Msg)
	}

	items := make([]CommodityVO, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p == nil {
			continue
		}
		items = append(items, p.toVO())
	}
	return items, nil
}

// fetch 按顺序尝试各地址，只有连接层错误才换下一个
func (s *Service) fetch(ctx context.Context) ([]byte, error) {
	if len(s.urls) == 0 {
		return nil, errors.New("commodity url is not configured")
	}

	var lastErr error
	for i, u := range s.urls {
		body, err := s.get(ctx, u)
		if err == nil {
			return body, nil
		}
		var statusErr *statusError
		if errors.As(err, &statusErr) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if i < len(s.urls)-1 {
			s.logger.Warn("commodity source unreachable, trying fallback", zap.String("url", u), zap.Error(err))
		}
	}
	return nil, lastErr
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.code, e.body)
}

func (s *Service) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// timeoutOrDefault 配置未给超时时使用5秒
func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}
