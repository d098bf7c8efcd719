// internal/services/progress_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressPublishSubscribe(t *testing.T) {
	svc := NewProgressService()

	sub := svc.Subscribe("project-1")
	defer svc.Unsubscribe("project-1", sub)

	svc.Publish("project-1", StageParseScript, ProgressStarted, "开始解析剧本")

	select {
	case event := <-sub:
		assert.Equal(t, "project-1", event.ProjectID)
		assert.Equal(t, StageParseScript, event.Stage)
		assert.Equal(t, ProgressStarted, event.Status)
	case <-time.After(time.Second):
		t.Fatal("未收到阶段事件")
	}
}

func TestProgressSubscribeReplaysLastEvent(t *testing.T) {
	svc := NewProgressService()

	svc.Publish("project-1", StageGenerateShots, ProgressDone, "生成了5个镜头")

	sub := svc.Subscribe("project-1")
	defer svc.Unsubscribe("project-1", sub)

	select {
	case event := <-sub:
		assert.Equal(t, StageGenerateShots, event.Stage)
		assert.Equal(t, ProgressDone, event.Status)
	case <-time.After(time.Second):
		t.Fatal("订阅时未回放最近事件")
	}
}

func TestProgressEventsAreScopedByProject(t *testing.T) {
	svc := NewProgressService()

	subA := svc.Subscribe("project-a")
	defer svc.Unsubscribe("project-a", subA)
	subB := svc.Subscribe("project-b")
	defer svc.Unsubscribe("project-b", subB)

	svc.Publish("project-a", StageGenerateStyle, ProgressStarted, "")

	select {
	case <-subA:
	case <-time.After(time.Second):
		t.Fatal("project-a 未收到事件")
	}

	select {
	case event := <-subB:
		t.Fatalf("project-b 不应收到事件: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProgressUnsubscribeClosesChannel(t *testing.T) {
	svc := NewProgressService()

	sub := svc.Subscribe("project-1")
	svc.Unsubscribe("project-1", sub)

	_, open := <-sub
	assert.False(t, open)

	// 取消订阅后发布不应panic
	svc.Publish("project-1", StageParseScript, ProgressDone, "")
}

func TestProgressSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	svc := NewProgressService()

	sub := svc.Subscribe("project-1")
	defer svc.Unsubscribe("project-1", sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			svc.Publish("project-1", StageGenerateReferences, ProgressStarted, "")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("发布被慢订阅者阻塞")
	}
}

func TestCleanupIdleFeeds(t *testing.T) {
	svc := NewProgressService()

	svc.Publish("stale-project", StageParseScript, ProgressDone, "")
	time.Sleep(time.Millisecond)
	svc.CleanupIdleFeeds(0)

	// 清理后重新订阅不应回放旧事件
	sub := svc.Subscribe("stale-project")
	defer svc.Unsubscribe("stale-project", sub)

	select {
	case event := <-sub:
		t.Fatalf("不应回放已清理的事件: %+v", event)
	default:
	}

	require.NotNil(t, sub)
}
