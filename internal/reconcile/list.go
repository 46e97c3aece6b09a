package reconcile

import (
	"sync"
)

// Item 列表里的一条，Pending 表示还没拿到权威结果
type Item struct {
	Token   string
	Value   interface{}
	Pending bool
}

// List 带乐观条目的有序列表，评论区这类 "发出去立刻上屏" 的 UI 状态。
// Append 先插入预测条目；台账 Promote 后原位替换为权威值，
// Reject/超时后整条移除并通过 onError 把错误恰好上报一次。
type List struct {
	mu      sync.Mutex
	ledger  *Ledger
	items   []Item
	onError func(token string, err error)
}

func NewList(ledger *Ledger, onError func(token string, err error)) *List {
	l := &List{ledger: ledger, onError: onError}
	return l
}

// Confirmed 直接追加权威条目（非乐观路径，如初始加载）
func (l *List) Confirmed(value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, Item{Value: value})
}

// Append 追加乐观条目并登记到台账
func (l *List) Append(token string, prediction interface{}) error {
	if err := l.ledger.Apply(token, prediction); err != nil {
		return err
	}
	l.mu.Lock()
	l.items = append(l.items, Item{Token: token, Value: prediction, Pending: true})
	l.mu.Unlock()
	return nil
}

// Resolve 消费台账的归宿事件。Promote 原位替换，其余情况移除条目
func (l *List) Resolve(r Resolution) {
	l.mu.Lock()
	idx := -1
	for i := range l.items {
		if l.items[i].Pending && l.items[i].Token == r.Token {
			idx = i
			break
		}
	}

	switch {
	case idx == -1:
		l.mu.Unlock()
		return
	case r.Status == StatusPromoted:
		l.items[idx] = Item{Token: r.Token, Value: r.Authoritative}
		l.mu.Unlock()
	default:
		l.items = append(l.items[:idx], l.items[idx+1:]...)
		l.mu.Unlock()
		if l.onError != nil {
			l.onError(r.Token, r.Err)
		}
	}
}

// Items 当前可见列表的快照
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len 可见条数
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
