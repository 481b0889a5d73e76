package cpgame

import "sync"

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// chatLocks serializes work per chat and forgets chats nobody is waiting on.
type chatLocks struct {
	mu    sync.Mutex
	chats map[int64]*chatLock
}

func newChatLocks() *chatLocks {
	return &chatLocks{chats: make(map[int64]*chatLock)}
}

func (l *chatLocks) lock(chatID int64) func() {
	l.mu.Lock()
	cl, ok := l.chats[chatID]
	if !ok {
		cl = &chatLock{}
		l.chats[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.chats, chatID)
		}
		l.mu.Unlock()
	}
}

func (l *chatLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chats)
}
