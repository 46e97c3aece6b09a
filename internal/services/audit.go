package services

import (
	"sync"
	"time"

	"beans/internal/db"
	"beans/internal/models"

	"github.com/sirupsen/logrus"
)

// CounterAudit 后台校对 likes_count 的服务。
// 冗余计数由社交层原子增减维护，但在降级场景（历史数据、回滚失败）
// 可能漂移；这里定期用 Like 表的真实行数回写修正。
type CounterAudit struct {
	queue   chan uint // 待校对的帖子 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	counterAudit *CounterAudit
	auditOnce    sync.Once
)

// GetCounterAudit 获取单例校对服务
func GetCounterAudit() *CounterAudit {
	auditOnce.Do(func() {
		counterAudit = &CounterAudit{
			queue:   make(chan uint, 1000), // 缓冲队列，防止阻塞
			pending: make(map[uint]bool),
		}
		go counterAudit.worker()
	})
	return counterAudit
}

// ScheduleAudit 将帖子加入校对队列（异步）
// 使用去重机制避免短时间内重复校对同一帖子
func (s *CounterAudit) ScheduleAudit(postID uint) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		logrus.Warnf("counter audit queue full, skipping post %d", postID)
	}
}

// worker 批量处理队列中的校对请求
func (s *CounterAudit) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *CounterAudit) processBatch(postIDs []uint) {
	for _, postID := range postIDs {
		s.auditPost(postID)

		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
	}
}

// auditPost 用 Like 表的真实计数修正单个帖子
func (s *CounterAudit) auditPost(postID uint) {
	var post models.Post
	if err := db.DB.Select("id", "likes_count").First(&post, postID).Error; err != nil {
		// 帖子可能刚被删掉，正常情况
		return
	}

	var actual int64
	db.DB.Model(&models.Like{}).Where("post_id = ?", postID).Count(&actual)

	if int(actual) == post.LikesCount {
		return
	}

	logrus.Warnf("likes_count drift on post %d: stored=%d actual=%d", postID, post.LikesCount, actual)
	if err := db.DB.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("likes_count", actual).Error; err != nil {
		logrus.Errorf("failed to repair likes_count for post %d: %v", postID, err)
	}
}

// AuditPostSync 同步校对（测试和需要立即生效的场景用）
func AuditPostSync(postID uint) {
	GetCounterAudit().auditPost(postID)
}
