package todo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productivity-hub/internal/data"
	"productivity-hub/internal/errs"
	"productivity-hub/pkg/idgen"
)

const testUser = "u1"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	db := data.NewTestDB(t, Models()...)
	ids, err := idgen.NewService(idgen.Config{}, nil)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(db, ids, nil, WithClock(clock.Now), WithLocation(time.UTC))
	return svc, clock
}

func mustModule(t *testing.T, svc *Service, name string) *ModuleVO {
	t.Helper()
	m, err := svc.CreateModule(context.Background(), &ModuleCreateDTO{Name: name}, testUser)
	require.NoError(t, err)
	return m
}

func mustTask(t *testing.T, svc *Service, moduleID, title string) *TaskVO {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), &TaskCreateDTO{Title: title, ModuleID: moduleID}, testUser)
	require.NoError(t, err)
	return task
}

func eventTypes(t *testing.T, svc *Service, todoID string) []EventType {
	t.Helper()
	events, err := svc.ListEvents(context.Background(), todoID, testUser)
	require.NoError(t, err)
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
		canStart bool
	}{
		{StatusPending, false, true},
		{StatusInProgress, false, false},
		{StatusPaused, false, true},
		{StatusCompleted, true, false},
		{StatusInterrupted, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.canStart, tt.status.CanStart())
		})
	}

	assert.Equal(t, StatusPending, ParseStatus("unknown"))
	assert.Equal(t, StatusPaused, ParseStatus(" paused "))
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, PriorityP0, NormalizePriority("P0"))
	assert.Equal(t, PriorityP3, NormalizePriority(" P3 "))
	assert.Equal(t, PriorityP2, NormalizePriority(""))
	assert.Equal(t, PriorityP2, NormalizePriority("urgent"))
}

func TestModuleCRUD(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	t.Run("创建默认值", func(t *testing.T) {
		m := mustModule(t, svc, "  Work ")
		assert.Equal(t, "Work", m.Name)
		assert.Equal(t, ModuleEnabled, m.Status)
		assert.Zero(t, m.SortOrder)
	})

	t.Run("名称为空", func(t *testing.T) {
		_, err := svc.CreateModule(ctx, &ModuleCreateDTO{Name: "  "}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	t.Run("名称大小写不敏感唯一", func(t *testing.T) {
		_, err := svc.CreateModule(ctx, &ModuleCreateDTO{Name: "work"}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		_, err = svc.CreateModule(ctx, &ModuleCreateDTO{Name: "work"}, "other-user")
		assert.NoError(t, err, "不同用户可以同名")
	})

	t.Run("非法状态", func(t *testing.T) {
		_, err := svc.CreateModule(ctx, &ModuleCreateDTO{Name: "x", Status: "BROKEN"}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	t.Run("更新", func(t *testing.T) {
		m := mustModule(t, svc, "Home")
		order := 5
		desc := " chores "
		updated, err := svc.UpdateModule(ctx, &ModuleUpdateDTO{ID: m.ID, Name: "House", Description: &desc, SortOrder: &order}, testUser)
		require.NoError(t, err)
		assert.Equal(t, "House", updated.Name)
		assert.Equal(t, "chores", updated.Description)
		assert.Equal(t, 5, updated.SortOrder)

		_, err = svc.UpdateModule(ctx, &ModuleUpdateDTO{ID: m.ID, Name: "WORK"}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err), "与其它模块重名")

		_, err = svc.UpdateModule(ctx, &ModuleUpdateDTO{ID: m.ID, Name: "house"}, testUser)
		assert.NoError(t, err, "与自身同名不冲突")

		_, err = svc.UpdateModule(ctx, &ModuleUpdateDTO{ID: "missing"}, testUser)
		assert.Equal(t, errs.CodeNotFound, errs.Code(err))
	})

	t.Run("有任务时不能删除", func(t *testing.T) {
		m := mustModule(t, svc, "Busy")
		task := mustTask(t, svc, m.ID, "t")

		err := svc.DeleteModule(ctx, m.ID, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		require.NoError(t, svc.DeleteTask(ctx, task.ID, testUser))
		require.NoError(t, svc.DeleteModule(ctx, m.ID, testUser))

		err = svc.DeleteModule(ctx, m.ID, testUser)
		assert.Equal(t, errs.CodeNotFound, errs.Code(err))
	})
}

func TestListModules_WithStats(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	m := mustModule(t, svc, "Work")
	mustModule(t, svc, "Empty")
	a := mustTask(t, svc, m.ID, "a")
	mustTask(t, svc, m.ID, "b")

	_, err := svc.StartTask(ctx, a.ID, testUser)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)
	_, err = svc.CompleteTask(ctx, a.ID, testUser)
	require.NoError(t, err)

	modules, err := svc.ListModules(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, modules, 2)

	byName := map[string]ModuleVO{}
	for _, vo := range modules {
		byName[vo.Name] = vo
	}
	assert.Equal(t, int64(2), byName["Work"].TotalTasks)
	assert.Equal(t, int64(1), byName["Work"].CompletedTasks)
	assert.Equal(t, (15 * time.Minute).Milliseconds(), byName["Work"].TotalDurationMs)
	assert.Zero(t, byName["Empty"].TotalTasks)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	m := mustModule(t, svc, "Work")

	t.Run("字段规范化", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, &TaskCreateDTO{
			Title:    "  write report ",
			ModuleID: m.ID,
			Priority: "bogus",
			Tags:     []string{" a ", "", "b", "a"},
			DueDate:  "2024-03-10 18:30:00",
		}, testUser)
		require.NoError(t, err)

		assert.Equal(t, "write report", task.Title)
		assert.Equal(t, "Work", task.ModuleName)
		assert.Equal(t, PriorityP2, task.Priority)
		assert.Equal(t, []string{"a", "b"}, task.Tags)
		assert.Equal(t, StatusPending, task.Status)
		require.NotNil(t, task.DueDate)
		assert.True(t, task.DueDate.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, []EventType{EventCreate}, eventTypes(t, svc, task.ID))
	})

	t.Run("截止日期格式错误时忽略", func(t *testing.T) {
		task, err := svc.CreateTask(ctx, &TaskCreateDTO{Title: "x", ModuleID: m.ID, DueDate: "10/03/2024"}, testUser)
		require.NoError(t, err)
		assert.Nil(t, task.DueDate)
		assert.Equal(t, []string{}, task.Tags)
	})

	t.Run("参数错误", func(t *testing.T) {
		_, err := svc.CreateTask(ctx, &TaskCreateDTO{Title: " ", ModuleID: m.ID}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		_, err = svc.CreateTask(ctx, &TaskCreateDTO{Title: "x"}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		_, err = svc.CreateTask(ctx, &TaskCreateDTO{Title: "x", ModuleID: "missing"}, testUser)
		assert.Equal(t, errs.CodeNotFound, errs.Code(err))

		_, err = svc.CreateTask(ctx, &TaskCreateDTO{Title: "x", ModuleID: m.ID}, "other-user")
		assert.Equal(t, errs.CodeNotFound, errs.Code(err), "不能使用其他用户的模块")
	})
}

func TestTaskLifecycle_Durations(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	m := mustModule(t, svc, "Work")
	task := mustTask(t, svc, m.ID, "focus")

	started, err := svc.StartTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	clock.Advance(10 * time.Minute)
	running, err := svc.GetTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), running.DurationMs, "进行中的任务包含当前运行时间")

	paused, err := svc.PauseTask(ctx, task.ID, testUser, false)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, paused.Status)
	assert.Equal(t, (10 * time.Minute).Milliseconds(), paused.DurationMs)
	assert.Nil(t, paused.ActiveStartAt)

	clock.Advance(5 * time.Minute)
	resumed, err := svc.ResumeTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), resumed.PausedDurationMs)
	assert.True(t, resumed.StartedAt.Equal(*started.StartedAt), "开始时间保持首次开始")

	clock.Advance(20 * time.Minute)
	done, err := svc.CompleteTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, (30 * time.Minute).Milliseconds(), done.DurationMs)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), done.PausedDurationMs)
	require.NotNil(t, done.EndedAt)

	clock.Advance(time.Hour)
	again, err := svc.CompleteTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, done.DurationMs, again.DurationMs, "重复完成不改变时长")

	assert.Equal(t,
		[]EventType{EventCreate, EventStart, EventPause, EventResume, EventComplete},
		eventTypes(t, svc, task.ID))
}

func TestStartTask_AutoSwitch(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	m := mustModule(t, svc, "Work")
	a := mustTask(t, svc, m.ID, "a")
	b := mustTask(t, svc, m.ID, "b")

	_, err := svc.StartTask(ctx, a.ID, testUser)
	require.NoError(t, err)
	clock.Advance(7 * time.Minute)
	_, err = svc.StartTask(ctx, b.ID, testUser)
	require.NoError(t, err)

	pausedA, err := svc.GetTask(ctx, a.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, pausedA.Status)
	assert.Equal(t, (7 * time.Minute).Milliseconds(), pausedA.DurationMs)

	events, err := svc.ListEvents(ctx, a.ID, testUser)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Equal(t, EventPause, last.EventType)
	assert.Equal(t, PayloadAutoSwitch, last.Payload)

	active, err := svc.ActiveTask(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.ID, active.ID)
}

func TestTaskStateGuards(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	m := mustModule(t, svc, "Work")

	t.Run("进行中不能编辑和删除", func(t *testing.T) {
		task := mustTask(t, svc, m.ID, "running")
		_, err := svc.StartTask(ctx, task.ID, testUser)
		require.NoError(t, err)

		_, err = svc.UpdateTask(ctx, &TaskUpdateDTO{ID: task.ID, Title: "new"}, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		err = svc.DeleteTask(ctx, task.ID, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		_, err = svc.StartTask(ctx, task.ID, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err), "进行中不能再次开始")

		_, err = svc.PauseTask(ctx, task.ID, testUser, true)
		require.NoError(t, err)
		events, err := svc.ListEvents(ctx, task.ID, testUser)
		require.NoError(t, err)
		assert.Equal(t, PayloadSystemAuto, events[len(events)-1].Payload)
	})

	t.Run("只有进行中可以暂停", func(t *testing.T) {
		task := mustTask(t, svc, m.ID, "idle")
		_, err := svc.PauseTask(ctx, task.ID, testUser, false)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	})

	t.Run("已完成不能中断", func(t *testing.T) {
		task := mustTask(t, svc, m.ID, "finished")
		_, err := svc.CompleteTask(ctx, task.ID, testUser)
		require.NoError(t, err)

		_, err = svc.InterruptTask(ctx, task.ID, testUser, nil, false)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err))

		_, err = svc.StartTask(ctx, task.ID, testUser)
		assert.Equal(t, errs.CodeBadRequest, errs.Code(err), "终态不能开始")
	})

	t.Run("系统中断", func(t *testing.T) {
		task := mustTask(t, svc, m.ID, "broken")
		_, err := svc.StartTask(ctx, task.ID, testUser)
		require.NoError(t, err)

		vo, err := svc.InterruptTask(ctx, task.ID, testUser, &TaskInterruptDTO{Reason: " shutdown "}, true)
		require.NoError(t, err)
		assert.Equal(t, StatusInterrupted, vo.Status)

		events, err := svc.ListEvents(ctx, task.ID, testUser)
		require.NoError(t, err)
		last := events[len(events)-1]
		assert.Equal(t, EventSystemInterrupt, last.EventType)
		assert.Equal(t, "shutdown", last.Payload)
	})

	t.Run("任务不存在", func(t *testing.T) {
		_, err := svc.GetTask(ctx, "missing", testUser)
		assert.Equal(t, errs.CodeNotFound, errs.Code(err))
	})
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	work := mustModule(t, svc, "Work")
	home := mustModule(t, svc, "Home")

	task, err := svc.CreateTask(ctx, &TaskCreateDTO{Title: "t", ModuleID: work.ID, DueDate: "2024-05-01", Tags: []string{"x"}}, testUser)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	empty := ""
	desc := " details "
	updated, err := svc.UpdateTask(ctx, &TaskUpdateDTO{
		ID:          task.ID,
		ModuleID:    home.ID,
		Priority:    "P0",
		Description: &desc,
		DueDate:     &empty,
	}, testUser)
	require.NoError(t, err)

	assert.Equal(t, "t", updated.Title, "空标题不修改")
	assert.Equal(t, "Home", updated.ModuleName)
	assert.Equal(t, PriorityP0, updated.Priority)
	assert.Equal(t, "details", updated.Description)
	assert.Nil(t, updated.DueDate, "空字符串清空截止日期")
	assert.Equal(t, []string{"x"}, updated.Tags, "nil标签不修改")
	assert.True(t, clock.now.Equal(updated.UpdatedAt), "更新时间取服务时钟")

	got, err := svc.GetTask(ctx, task.ID, testUser)
	require.NoError(t, err)
	assert.True(t, clock.now.Equal(got.UpdatedAt), "落库的更新时间同样取服务时钟")
}

func TestBatchDeleteTasks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	m := mustModule(t, svc, "Work")
	a := mustTask(t, svc, m.ID, "a")
	b := mustTask(t, svc, m.ID, "b")
	c := mustTask(t, svc, m.ID, "c")

	_, err := svc.StartTask(ctx, c.ID, testUser)
	require.NoError(t, err)

	err = svc.BatchDeleteTasks(ctx, []string{a.ID, c.ID}, testUser)
	assert.Equal(t, errs.CodeBadRequest, errs.Code(err))
	_, err = svc.GetTask(ctx, a.ID, testUser)
	assert.NoError(t, err, "失败时整体回滚")

	assert.Equal(t, errs.CodeBadRequest, errs.Code(svc.BatchDeleteTasks(ctx, nil, testUser)))

	require.NoError(t, svc.BatchDeleteTasks(ctx, []string{a.ID, b.ID, a.ID}, testUser))
	list, err := svc.ListTasks(ctx, testUser, TaskQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	events, err := svc.ListEvents(ctx, a.ID, testUser)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestListAndPageTasks(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	work := mustModule(t, svc, "Work")
	home := mustModule(t, svc, "Home")

	for i := 0; i < 12; i++ {
		mustTask(t, svc, work.ID, "w")
		clock.Advance(time.Second)
	}
	h := mustTask(t, svc, home.ID, "h")
	_, err := svc.CompleteTask(ctx, h.ID, testUser)
	require.NoError(t, err)

	list, err := svc.ListTasks(ctx, testUser, TaskQuery{ModuleID: home.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.ListTasks(ctx, testUser, TaskQuery{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, h.ID, list[0].ID)

	page, err := svc.PageTasks(ctx, testUser, TaskQuery{ModuleID: work.ID, PageNum: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 2, page.PageNum)
	assert.Len(t, page.Items, 5)

	page, err = svc.PageTasks(ctx, testUser, TaskQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageNum)
	assert.Equal(t, 10, page.PageSize)
	assert.Len(t, page.Items, 10)

	active, err := svc.ActiveTask(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	work := mustModule(t, svc, "Work")
	home := mustModule(t, svc, "Home")

	a := mustTask(t, svc, work.ID, "a")
	b := mustTask(t, svc, home.ID, "b")
	c := mustTask(t, svc, work.ID, "c")
	mustTask(t, svc, work.ID, "pending")

	_, err := svc.StartTask(ctx, a.ID, testUser)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = svc.CompleteTask(ctx, a.ID, testUser)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = svc.StartTask(ctx, b.ID, testUser)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	_, err = svc.InterruptTask(ctx, b.ID, testUser, nil, false)
	require.NoError(t, err)

	_, err = svc.StartTask(ctx, c.ID, testUser)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, testUser, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(1), stats.InProgressTasks)
	assert.Equal(t, int64(1), stats.InterruptedTasks)
	assert.Equal(t, (90 * time.Minute).Milliseconds(), stats.TotalDurationMs)

	require.Len(t, stats.ModuleStats, 2)
	assert.Equal(t, "Work", stats.ModuleStats[0].ModuleName, "按时长降序")
	assert.Equal(t, int64(3), stats.ModuleStats[0].TotalTasks)

	require.Len(t, stats.Timeline, 2)
	assert.Equal(t, DailyStat{Date: "2024-03-01", CompletedTasks: 1, DurationMs: time.Hour.Milliseconds()}, stats.Timeline[0])
	assert.Equal(t, DailyStat{Date: "2024-03-02", CompletedTasks: 0, DurationMs: (30 * time.Minute).Milliseconds()}, stats.Timeline[1])

	start := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	ranged, err := svc.Stats(ctx, testUser, &start, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), ranged.TotalTasks, "状态计数不受时间范围影响")
	assert.Equal(t, (30 * time.Minute).Milliseconds(), ranged.TotalDurationMs)
	require.Len(t, ranged.Timeline, 1)
	assert.Equal(t, "2024-03-02", ranged.Timeline[0].Date)
}

func TestImportTasks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	existing := mustModule(t, svc, "Work")

	result, err := svc.ImportTasks(ctx, testUser, []ImportItemDTO{
		{ModuleName: "work", Title: "reuse existing", Priority: "P1"},
		{ModuleName: "Reading", Title: "book 1", Tags: []string{"book"}},
		{ModuleName: "reading", Title: "book 2", DueDate: "2024-04-01"},
		{ModuleName: "Reading", Title: " "},
		{ModuleName: "", Title: "orphan"},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.CreatedModules)
	assert.Equal(t, []string{
		"row 4: task title is required",
		"row 5: module name is required",
	}, result.Errors)

	list, err := svc.ListTasks(ctx, testUser, TaskQuery{ModuleID: existing.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, PriorityP1, list[0].Priority)

	events, err := svc.ListEvents(ctx, list[0].ID, testUser)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PayloadImport, events[0].Payload)

	modules, err := svc.ListModules(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, modules, 2)

	empty, err := svc.ImportTasks(ctx, testUser, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}
