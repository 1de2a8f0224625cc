package echoapi

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core"
	"github.com/trezcool/masomo-attendance/core/attendance"
)

// SessionRegistry holds one marking Session per operator.
// The least recently used Session is dropped, with its pending edits, once MaxSessions is reached.
type SessionRegistry struct {
	mu       sync.Mutex
	svc      *attendance.Service
	logger   core.Logger
	sessions *lru.Cache[string, *attendance.Session]
}

func NewSessionRegistry(conf *core.Config, svc *attendance.Service, logger core.Logger) (*SessionRegistry, error) {
	reg := &SessionRegistry{svc: svc, logger: logger}
	cache, err := lru.NewWithEvict[string, *attendance.Session](conf.Server.MaxSessions, reg.evicted)
	if err != nil {
		return nil, errors.Wrap(err, "creating session cache")
	}
	reg.sessions = cache
	return reg, nil
}

func (reg *SessionRegistry) evicted(operatorID string, sess *attendance.Session) {
	if sess.IsDirty() {
		key, _ := sess.Key()
		reg.logger.Warn("evicting a session with unsaved attendance edits", map[string]interface{}{
			"operator_id": operatorID,
			"key":         key.String(),
		})
	}
}

// Get returns the Session of op, creating it on first use.
func (reg *SessionRegistry) Get(op core.Operator) *attendance.Session {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if sess, ok := reg.sessions.Get(op.ID); ok {
		return sess
	}
	sess := reg.svc.NewSession(op)
	reg.sessions.Add(op.ID, sess)
	return sess
}

// Drop forgets the Session of op.
func (reg *SessionRegistry) Drop(op core.Operator) {
	reg.sessions.Remove(op.ID)
}

func (reg *SessionRegistry) Len() int {
	return reg.sessions.Len()
}
