// internal/services/progress_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTrackerMonotoneAndTerminalOnce(t *testing.T) {
	service := NewProgressService()
	tracker := service.CreateTracker("task-1")

	tracker.UpdateProgress(40, "进行中")
	tracker.UpdateProgress(20, "落后的更新") // 进度不回退

	assert.Equal(t, 40, tracker.Progress)

	tracker.Complete("全部完成")

	select {
	case <-tracker.Done:
	default:
		t.Fatal("Complete 后 Done 通道应已关闭")
	}

	assert.Equal(t, "completed", tracker.Status)
	assert.Equal(t, 100, tracker.Progress)

	// 终态之后的失败标记不生效
	tracker.Fail("太迟了")
	assert.Equal(t, "completed", tracker.Status)
}

func TestProgressTrackerSubscribeReceivesCurrentState(t *testing.T) {
	service := NewProgressService()
	tracker := service.CreateTracker("task-2")
	tracker.UpdateProgress(50, "合成中")

	sub := tracker.Subscribe()

	update := <-sub
	assert.Equal(t, 50, update.Progress)
	assert.Equal(t, "running", update.Status)

	tracker.Cancel("用户取消")

	var last ProgressUpdate
	for update := range sub {
		last = update
		if update.Status != "running" {
			break
		}
	}
	assert.Equal(t, "cancelled", last.Status)

	// 重复取消订阅不会panic
	tracker.Unsubscribe(sub)
	tracker.Unsubscribe(sub)
}

func TestProgressServiceCleanup(t *testing.T) {
	service := NewProgressService()

	tracker := service.CreateTracker("task-old")
	tracker.Complete("")
	tracker.UpdateTime = time.Now().Add(-2 * time.Hour)

	running := service.CreateTracker("task-live")
	require.Equal(t, "running", running.Status)

	service.CleanupCompletedTasks(time.Hour)

	_, exists := service.GetTracker("task-old")
	assert.False(t, exists)

	_, exists = service.GetTracker("task-live")
	assert.True(t, exists)
}

func TestCreateTrackerIsIdempotent(t *testing.T) {
	service := NewProgressService()

	first := service.CreateTracker("task-3")
	second := service.CreateTracker("task-3")

	assert.Same(t, first, second)
}
