// internal/services/progress_service.go
package services

import (
	"sync"
	"time"
)

// 管线阶段标识
const (
	StageParseScript        = "parse_script"
	StageGenerateStyle      = "generate_style"
	StageGenerateShots      = "generate_shots"
	StageGenerateReferences = "generate_references"
)

// 阶段事件状态
const (
	ProgressStarted = "started"
	ProgressDone    = "done"
	ProgressFailed  = "failed"
)

// StageEvent 一条管线阶段事件。纯观察性：任何阶段都不依赖它。
type StageEvent struct {
	ProjectID string    `json:"project_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// projectFeed 单个项目的事件订阅集合
type projectFeed struct {
	subscribers map[chan StageEvent]bool
	lastEvent   *StageEvent
	mutex       sync.Mutex
}

// ProgressService 管理按项目划分的管线阶段事件流。
// 管线各阶段在开始/完成/失败时发布事件，websocket层按项目订阅。
type ProgressService struct {
	feeds map[string]*projectFeed
	mutex sync.RWMutex
}

// NewProgressService 创建进度服务实例
func NewProgressService() *ProgressService {
	return &ProgressService{
		feeds: make(map[string]*projectFeed),
	}
}

func (s *ProgressService) feed(projectID string) *projectFeed {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, exists := s.feeds[projectID]
	if !exists {
		f = &projectFeed{subscribers: make(map[chan StageEvent]bool)}
		s.feeds[projectID] = f
	}
	return f
}

// Publish 发布一条阶段事件给项目的所有订阅者
func (s *ProgressService) Publish(projectID, stage, status, message string) {
	event := StageEvent{
		ProjectID: projectID,
		Stage:     stage,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}

	f := s.feed(projectID)
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.lastEvent = &event

	for subscriber := range f.subscribers {
		// 非阻塞发送，通道已满则跳过
		select {
		case subscriber <- event:
		default:
		}
	}
}

// Subscribe 订阅项目的阶段事件。订阅时立即收到最近一条事件（如果有）。
func (s *ProgressService) Subscribe(projectID string) chan StageEvent {
	f := s.feed(projectID)
	f.mutex.Lock()
	defer f.mutex.Unlock()

	// 缓冲区设为16以避免阻塞发布方
	subscriber := make(chan StageEvent, 16)
	f.subscribers[subscriber] = true

	if f.lastEvent != nil {
		subscriber <- *f.lastEvent
	}

	return subscriber
}

// Unsubscribe 取消订阅并关闭通道
func (s *ProgressService) Unsubscribe(projectID string, subscriber chan StageEvent) {
	s.mutex.RLock()
	f, exists := s.feeds[projectID]
	s.mutex.RUnlock()
	if !exists {
		return
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.subscribers[subscriber] {
		delete(f.subscribers, subscriber)
		close(subscriber)
	}
}

// CleanupIdleFeeds 清理没有订阅者且最近无事件的项目流
func (s *ProgressService) CleanupIdleFeeds(maxAge time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	for id, f := range s.feeds {
		f.mutex.Lock()
		idle := len(f.subscribers) == 0 &&
			(f.lastEvent == nil || now.Sub(f.lastEvent.Timestamp) > maxAge)
		f.mutex.Unlock()

		if idle {
			delete(s.feeds, id)
		}
	}
}
