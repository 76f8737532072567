package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Register(ctx context.Context, email, password string) (u usersvc.User, token string, err error) {
	defer func() {
		mw.logger.Log("method", "Register", "email", email, "user_id", u.ID, "err", err)
	}()
	return mw.next.Register(ctx, email, password)
}

func (mw loggingMiddleware) Login(ctx context.Context, email, password string) (u usersvc.User, token string, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "email", email, "user_id", u.ID, "err", err)
	}()
	return mw.next.Login(ctx, email, password)
}

func (mw loggingMiddleware) Logout(ctx context.Context, a authsvc.Auth) (err error) {
	defer func() {
		mw.logger.Log("method", "Logout", "user_id", a.User.ID, "err", err)
	}()
	return mw.next.Logout(ctx, a)
}

func (mw loggingMiddleware) Me(ctx context.Context, a authsvc.Auth) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "Me", "user_id", a.User.ID, "err", err)
	}()
	return mw.next.Me(ctx, a)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) Register(ctx context.Context, email, password string) (usersvc.User, string, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "register").Add(1)
		mw.requestLatency.With("method", "register").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Register(ctx, email, password)
}

func (mw instrumentingMiddleware) Login(ctx context.Context, email, password string) (usersvc.User, string, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "login").Add(1)
		mw.requestLatency.With("method", "login").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Login(ctx, email, password)
}

func (mw instrumentingMiddleware) Logout(ctx context.Context, a authsvc.Auth) error {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "logout").Add(1)
		mw.requestLatency.With("method", "logout").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Logout(ctx, a)
}

func (mw instrumentingMiddleware) Me(ctx context.Context, a authsvc.Auth) (usersvc.User, error) {
	defer func(begin time.Time) {
		mw.requestCount.With("method", "me").Add(1)
		mw.requestLatency.With("method", "me").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mw.next.Me(ctx, a)
}
