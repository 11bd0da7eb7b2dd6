package daemon

import (
	"sync"
	"time"

	"signflow/internal/api"
	"signflow/internal/translate"
)

const noticeCapacity = 64

// noticeLog keeps the most recent session notices for API polling.
type noticeLog struct {
	mu       sync.Mutex
	capacity int
	entries  []api.Notice
	nextSeq  uint64
}

func newNoticeLog(capacity int) *noticeLog {
	return &noticeLog{capacity: capacity}
}

func (l *noticeLog) add(n translate.Notice, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSeq++
	if len(l.entries) == l.capacity {
		l.entries = append(l.entries[:0], l.entries[1:]...)
	}
	l.entries = append(l.entries, api.NewNotice(l.nextSeq, at, n.Level, n.Message))
}

func (l *noticeLog) since(seq uint64) ([]api.Notice, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.Notice, 0, len(l.entries))
	for _, n := range l.entries {
		if n.Sequence > seq {
			out = append(out, n)
		}
	}
	return out, l.nextSeq
}
