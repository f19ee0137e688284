// Package drfcontext provides a context.Context that also carries a structured logger, so that
// reconciliation passes can hand a single value down the call stack and get pass-scoped log fields
// for free.
package drfcontext

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Context struct {
	context.Context
	Log *logrus.Entry
}

// Background returns an empty context logging through the standard logrus logger.
func Background() *Context {
	return New(context.Background(), logrus.NewEntry(logrus.StandardLogger()))
}

// New wraps ctx with the given logger. A nil logger falls back to the standard logger.
func New(ctx context.Context, log *logrus.Entry) *Context {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Context{
		Context: ctx,
		Log:     log,
	}
}

// Detached returns a context that keeps the logger of parent but not its cancellation.
// Used to let an in-flight pass finish after shutdown has been requested.
func Detached(parent *Context) *Context {
	return New(context.Background(), parent.Log)
}

func WithCancel(parent *Context) (*Context, context.CancelFunc) {
	c, cancel := context.WithCancel(parent.Context)
	return New(c, parent.Log), cancel
}

func WithTimeout(parent *Context, timeout time.Duration) (*Context, context.CancelFunc) {
	c, cancel := context.WithTimeout(parent.Context, timeout)
	return New(c, parent.Log), cancel
}

// WithLogField returns a copy of parent with key=val added to the logger.
func WithLogField(parent *Context, key string, val interface{}) *Context {
	return New(parent.Context, parent.Log.WithField(key, val))
}

// WithLogFields returns a copy of parent with fields added to the logger.
func WithLogFields(parent *Context, fields logrus.Fields) *Context {
	return New(parent.Context, parent.Log.WithFields(fields))
}

// ErrGroup is analogous to errgroup.WithContext, keeping the logger of ctx.
func ErrGroup(ctx *Context) (*errgroup.Group, *Context) {
	group, goctx := errgroup.WithContext(ctx.Context)
	return group, New(goctx, ctx.Log)
}
