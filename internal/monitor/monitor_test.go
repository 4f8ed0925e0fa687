package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/internal/data"
	"productivity-hub/internal/errs"
	"productivity-hub/internal/notification"
)

type fakeSampler struct {
	metrics SystemMetricsVO
	err     error
}

func (f *fakeSampler) Sample(context.Context) (*SystemMetricsVO, error) {
	if f.err != nil {
		return nil, f.err
	}
	vo := f.metrics
	return &vo, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*notification.PublishDTO
}

func (n *recordingNotifier) Publish(_ context.Context, dto *notification.PublishDTO) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, dto)
	return "n1", nil
}

type testEnv struct {
	svc      *Service
	sampler  *fakeSampler
	notifier *recordingNotifier
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sampler:  &fakeSampler{metrics: SystemMetricsVO{CPUUsage: 10, MemoryUsage: 20}},
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	rec := NewRecorder(0, prometheus.NewRegistry())
	env.svc = NewService(data.NewTestDB(t, Models()...), rec, env.sampler, env.notifier, nil,
		WithClock(func() time.Time { return env.now }), WithAlertUser("ops"))
	require.NoError(t, env.svc.EnsureDefaultRules(context.Background()))
	return env
}

func TestCheckThreshold(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		operator string
		want     bool
	}{
		{"大于", 81, ">", true},
		{"大于边界", 80, ">", false},
		{"大于等于", 80, ">=", true},
		{"小于", 79, "<", true},
		{"小于等于", 80, "<=", true},
		{"等于容差内", 80.009, "==", true},
		{"等于容差外", 80.02, "==", false},
		{"未知运算符", 100, "!=", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkThreshold(tt.value, 80, tt.operator))
		})
	}
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(3, reg)

	rec.RecordRequest("/api/a", true, 10)
	rec.RecordRequest("/api/a", true, 20)
	rec.RecordRequest("/api/a", false, 30)
	rec.RecordRequest("/api/a", true, 40) // 挤掉 10
	rec.RecordRequest("/api/b", true, 5)

	snap := rec.Snapshot()
	assert.Equal(t, int64(5), snap.TotalRequests)
	assert.Equal(t, int64(4), snap.SuccessRequests)
	assert.Equal(t, int64(1), snap.ErrorRequests)
	assert.InDelta(t, 20.0, snap.ErrorRate, 0.0001)

	a := snap.ApiStats["/api/a"]
	assert.Equal(t, int64(4), a.RequestCount)
	assert.Equal(t, int64(1), a.ErrorCount)
	assert.InDelta(t, 30.0, a.AvgResponseTime, 0.0001)
	assert.Equal(t, 40.0, a.MaxResponseTime)
	assert.Equal(t, 20.0, a.MinResponseTime, "最小值只取窗口内样本")
	assert.Equal(t, 5.0, snap.ApiStats["/api/b"].MinResponseTime)

	assert.InDelta(t, 95.0/4, snap.AvgResponseTime, 0.0001)
	assert.Equal(t, 40.0, snap.MaxResponseTime)
	assert.Equal(t, 5.0, snap.MinResponseTime)
	assert.Equal(t, []string{"/api/a", "/api/b"}, rec.Paths())

	assert.Equal(t, 1.0, counterValue(t, reg, "hub_http_requests_total", "/api/a", "error"))
	assert.Equal(t, 3.0, counterValue(t, reg, "hub_http_requests_total", "/api/a", "success"))
}

// counterValue 从注册表读取带 path/result 标签的计数
func counterValue(t *testing.T, reg *prometheus.Registry, name, path, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["path"] == path && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{path=%q,result=%q} not found", name, path, result)
	return 0
}

func TestRecorderEmpty(t *testing.T) {
	snap := NewRecorder(0, nil).Snapshot()
	assert.Equal(t, int64(0), snap.TotalRequests)
	assert.Equal(t, 0.0, snap.ErrorRate)
	assert.Equal(t, 0.0, snap.MinResponseTime)
	assert.NotNil(t, snap.ApiStats)
}

func TestRecorderKeepsLastSamples(t *testing.T) {
	rec := NewRecorder(DefaultSampleWindow, nil)
	for i := 1; i <= DefaultSampleWindow+500; i++ {
		rec.RecordRequest("/p", true, int64(i))
	}
	stat := rec.paths["/p"]
	assert.Len(t, stat.samples, DefaultSampleWindow)
	assert.Equal(t, int64(DefaultSampleWindow+500), stat.requests)

	snap := rec.Snapshot()
	assert.Equal(t, 501.0, snap.MinResponseTime)
	assert.Equal(t, 501.0, snap.ApiStats["/p"].MinResponseTime)
	assert.Equal(t, float64(DefaultSampleWindow+500), snap.MaxResponseTime)
}

func TestCheckAndTriggerAlerts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	n, err := env.svc.CheckAndTriggerAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "指标正常")

	env.sampler.metrics.CPUUsage = 92.5
	n, err = env.svc.CheckAndTriggerAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, env.notifier.sent, 1)
	sent := env.notifier.sent[0]
	assert.Equal(t, "ops", sent.UserID)
	assert.Equal(t, "System alert: WARN", sent.Title)
	assert.Equal(t, "CPU usage too high: 92.50%", sent.Content)
	assert.Equal(t, AlertPath, sent.Path)

	t.Run("去重窗口内不重复", func(t *testing.T) {
		env.now = env.now.Add(4 * time.Minute)
		n, err := env.svc.CheckAndTriggerAlerts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("超过窗口再次触发", func(t *testing.T) {
		env.now = env.now.Add(2 * time.Minute)
		n, err := env.svc.CheckAndTriggerAlerts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("处理后立即可再次触发", func(t *testing.T) {
		alerts, err := env.svc.Alerts(ctx, nil)
		require.NoError(t, err)
		for _, a := range alerts {
			require.NoError(t, env.svc.HandleAlert(ctx, a.ID))
		}
		env.now = env.now.Add(time.Second)
		n, err := env.svc.CheckAndTriggerAlerts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	handled, unhandled := true, false
	done, err := env.svc.Alerts(ctx, &handled)
	require.NoError(t, err)
	assert.Len(t, done, 2)
	for _, a := range done {
		assert.NotNil(t, a.HandledTime)
	}
	open, err := env.svc.Alerts(ctx, &unhandled)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, MetricCPUUsage, open[0].MetricName)
	assert.Equal(t, "rule_cpu_usage", open[0].RuleID)
}

func TestErrorRateAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.svc.Recorder()
	for i := 0; i < 9; i++ {
		rec.RecordRequest("/api/x", true, 1)
	}
	rec.RecordRequest("/api/x", false, 1)

	n, err := env.svc.CheckAndTriggerAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, "System alert: ERROR", env.notifier.sent[0].Title)
	assert.True(t, strings.HasPrefix(env.notifier.sent[0].Content, "error rate too high: 10.00"))
}

func TestSamplerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sampler.err = errors.New("no procfs")

	_, err := env.svc.CheckAndTriggerAlerts(context.Background())
	assert.Equal(t, errs.CodeInternal, errs.Code(err))
	_, err = env.svc.SystemMetrics(context.Background())
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rules, err := env.svc.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	require.NoError(t, env.svc.EnsureDefaultRules(ctx), "重复初始化")
	rules, err = env.svc.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	t.Run("新增自定义指标规则", func(t *testing.T) {
		disabled := false
		rule, err := env.svc.AddRule(ctx, &AlertRuleDTO{MetricName: MetricGoroutines, Threshold: 1000, Operator: ">=", Level: LevelInfo, Enabled: &disabled})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rule.ID, "rule_"))
		assert.False(t, *rule.Enabled)
		assert.Equal(t, "goroutine_count = {value}", rule.MessageTemplate)
	})

	t.Run("非法运算符", func(t *testing.T) {
		_, err := env.svc.AddRule(ctx, &AlertRuleDTO{MetricName: "x", Operator: "!=", Level: LevelInfo})
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	t.Run("关闭规则后不触发", func(t *testing.T) {
		disabled := false
		_, err := env.svc.AddRule(ctx, &AlertRuleDTO{ID: "rule_cpu_usage", MetricName: MetricCPUUsage, Threshold: 80, Operator: ">", Level: LevelWarn, Enabled: &disabled})
		require.NoError(t, err)
		env.sampler.metrics.CPUUsage = 99
		n, err := env.svc.CheckAndTriggerAlerts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	require.NoError(t, env.svc.DeleteRule(ctx, "rule_memory_usage"))
	rules, err = env.svc.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)
	for _, r := range rules {
		assert.NotEqual(t, "rule_memory_usage", r.ID)
	}
}

func TestMetricValueFromList(t *testing.T) {
	system := &SystemMetricsVO{Metrics: []MetricVO{{Name: MetricGoroutines, Value: 42}}}
	app := &ApplicationMetricsVO{Metrics: []MetricVO{{Name: MetricQPS, Value: 3}}}

	v, ok := metricValue(MetricGoroutines, system, app)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = metricValue(MetricQPS, system, app)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = metricValue("unknown", system, app)
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := NewRecorder(0, nil)

	r := gin.New()
	r.Use(Middleware(rec))
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/api/items/1", "/api/items/2", "/api/fail", "/nowhere"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	snap := rec.Snapshot()
	assert.Equal(t, int64(2), snap.ApiStats["/api/items/:id"].SuccessCount)
	assert.Equal(t, int64(1), snap.ApiStats["/api/fail"].ErrorCount)
	assert.Equal(t, int64(1), snap.ApiStats[UnmatchedPath].ErrorCount)
}

func TestRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor loop did not stop")
	}
}
