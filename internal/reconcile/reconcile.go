// Package reconcile 实现乐观更新的对账协议。
//
// 每个乐观变更携带一个客户端生成的关联令牌（uuid）：本地先落一条
// pending 预测条目，权威响应回来后要么 Promote（用服务端结果按令牌
// 替换预测），要么 Reject（移除预测、把错误恰好上抛一次）。预测只是
// 预测，不是提交——每条乐观路径都必须有配对的回滚路径。pending 条目
// 不允许无限期挂着，后台 sweeper 超时后按 Reject 处理兜底。
package reconcile

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Status int

const (
	StatusPromoted Status = iota // 权威结果替换预测
	StatusRejected               // 变更失败，预测回滚
	StatusExpired                // 超时兜底，按失败回滚
)

var (
	ErrDuplicateToken = errors.New("token already pending")
	ErrTimeout        = errors.New("optimistic mutation timed out")
)

// Resolution pending 条目的最终归宿，每个令牌恰好产生一次
type Resolution struct {
	Token         string
	Status        Status
	Prediction    interface{}
	Authoritative interface{} // Promoted 时有效
	Err           error       // Rejected / Expired 时有效
}

type pendingEntry struct {
	prediction interface{}
	appliedAt  time.Time
}

// Ledger 乐观变更台账。并发安全；onResolve 在持锁外回调。
type Ledger struct {
	mu        sync.Mutex
	pending   map[string]pendingEntry
	timeout   time.Duration
	onResolve func(Resolution)
	stop      chan struct{}
	stopOnce  sync.Once
}

const DefaultTimeout = 30 * time.Second

// NewToken 生成关联令牌
func NewToken() string {
	return uuid.New().String()
}

// NewLedger 创建台账并启动超时 sweeper。onResolve 可为 nil。
func NewLedger(timeout time.Duration, onResolve func(Resolution)) *Ledger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l := &Ledger{
		pending:   make(map[string]pendingEntry),
		timeout:   timeout,
		onResolve: onResolve,
		stop:      make(chan struct{}),
	}
	go l.sweeper()
	return l
}

// Apply 登记一条预测。令牌重复说明同一个变更被重复发起
func (l *Ledger) Apply(token string, prediction interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pending[token]; ok {
		return ErrDuplicateToken
	}
	l.pending[token] = pendingEntry{prediction: prediction, appliedAt: time.Now()}
	return nil
}

// Promote 权威结果到达，替换预测。令牌不在 pending 时返回 false
//（已经被 Reject 或超时回收过）。
func (l *Ledger) Promote(token string, authoritative interface{}) bool {
	return l.resolve(token, func(e pendingEntry) Resolution {
		return Resolution{Token: token, Status: StatusPromoted, Prediction: e.prediction, Authoritative: authoritative}
	})
}

// Reject 变更失败，回滚预测并上抛错误
func (l *Ledger) Reject(token string, err error) bool {
	return l.resolve(token, func(e pendingEntry) Resolution {
		return Resolution{Token: token, Status: StatusRejected, Prediction: e.prediction, Err: err}
	})
}

func (l *Ledger) resolve(token string, build func(pendingEntry) Resolution) bool {
	l.mu.Lock()
	e, ok := l.pending[token]
	if ok {
		delete(l.pending, token)
	}
	l.mu.Unlock()

	if !ok {
		return false
	}
	if l.onResolve != nil {
		l.onResolve(build(e))
	}
	return true
}

// PendingCount 当前挂起的预测条数
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Close 停掉 sweeper，剩余 pending 条目全部按超时回收
func (l *Ledger) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.expire(time.Now().Add(l.timeout))
}

func (l *Ledger) sweeper() {
	ticker := time.NewTicker(l.timeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.expire(time.Now())
		case <-l.stop:
			return
		}
	}
}

// expire 回收超时的 pending 条目，语义等同 Reject(ErrTimeout)
func (l *Ledger) expire(now time.Time) {
	l.mu.Lock()
	var expired []Resolution
	for token, e := range l.pending {
		if now.Sub(e.appliedAt) >= l.timeout {
			delete(l.pending, token)
			expired = append(expired, Resolution{
				Token: token, Status: StatusExpired, Prediction: e.prediction, Err: ErrTimeout,
			})
		}
	}
	l.mu.Unlock()

	for _, r := range expired {
		logrus.Warnf("optimistic entry %s expired after %s", r.Token, l.timeout)
		if l.onResolve != nil {
			l.onResolve(r)
		}
	}
}
