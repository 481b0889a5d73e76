package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	repliesKey = "mw.replies"
	deletedKey = "mw.deleted"
)

// countingContext records what a handler did to the chat so the router can
// summarize it in the handler line.
type countingContext struct{ tele.Context }

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	err := c.Context.Send(what, opts...)
	if err == nil {
		c.bump()
	}
	return err
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := c.Context.Reply(what, opts...)
	if err == nil {
		c.bump()
	}
	return err
}

func (c countingContext) Delete() error {
	err := c.Context.Delete()
	if err == nil {
		c.Set(deletedKey, true)
	}
	return err
}

func (c countingContext) bump() {
	n, _ := c.Get(repliesKey).(int)
	c.Set(repliesKey, n+1)
}

// MessageMetricsMiddleware counts replies and deletions made by the handler.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(repliesKey, 0)
		c.Set(deletedKey, false)
		return next(countingContext{Context: c})
	}
}

// GetCounters returns the number of replies sent and whether the incoming
// message was deleted.
func GetCounters(c tele.Context) (replies int, deleted bool) {
	replies, _ = c.Get(repliesKey).(int)
	deleted, _ = c.Get(deletedKey).(bool)
	return replies, deleted
}
