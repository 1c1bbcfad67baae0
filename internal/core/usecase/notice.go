package usecase

import (
	"sync"
	"time"

	"github.com/kirillkom/document-ledger/internal/core/domain"
)

// SessionNotice holds the last transient error raised for the session.
type SessionNotice struct {
	mu     sync.Mutex
	notice *domain.Notice
	now    func() time.Time
}

func NewSessionNotice(now func() time.Time) *SessionNotice {
	if now == nil {
		now = time.Now
	}
	return &SessionNotice{now: now}
}

func (n *SessionNotice) Raise(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notice = &domain.Notice{Message: message, RaisedAt: n.now().UTC()}
}

func (n *SessionNotice) Current() (domain.Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.notice == nil {
		return domain.Notice{}, false
	}
	return *n.notice, true
}

func (n *SessionNotice) Clear() {
	n.mu.Lock()
	n.notice = nil
	n.mu.Unlock()
}
