package userservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
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

func (mw loggingMiddleware) Save(ctx context.Context, u *usersvc.User) (err error) {
	changed := u != nil && u.Password != ""
	defer func() {
		mw.logger.Log(
			"method", "Save",
			"user_id", userID(u),
			"password_changed", changed,
			"err", err,
		)
	}()
	return mw.next.Save(ctx, u)
}

func (mw loggingMiddleware) FindByCredentials(ctx context.Context, email, password string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "FindByCredentials", "email", email, "user_id", u.ID, "err", err)
	}()
	return mw.next.FindByCredentials(ctx, email, password)
}

func (mw loggingMiddleware) FindByToken(ctx context.Context, token string) (u usersvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "FindByToken", "user_id", u.ID, "err", err)
	}()
	return mw.next.FindByToken(ctx, token)
}

func (mw loggingMiddleware) GenerateAuthToken(ctx context.Context, u *usersvc.User) (token string, err error) {
	defer func() {
		mw.logger.Log("method", "GenerateAuthToken", "user_id", userID(u), "err", err)
	}()
	return mw.next.GenerateAuthToken(ctx, u)
}

func (mw loggingMiddleware) RemoveToken(ctx context.Context, u *usersvc.User, token string) (err error) {
	defer func() {
		mw.logger.Log("method", "RemoveToken", "user_id", userID(u), "err", err)
	}()
	return mw.next.RemoveToken(ctx, u, token)
}

func userID(u *usersvc.User) string {
	if u == nil {
		return ""
	}
	return u.ID
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

func (mw instrumentingMiddleware) Save(ctx context.Context, u *usersvc.User) (err error) {
	defer mw.observe("save", time.Now())
	return mw.next.Save(ctx, u)
}

func (mw instrumentingMiddleware) FindByCredentials(ctx context.Context, email, password string) (usersvc.User, error) {
	defer mw.observe("find_by_credentials", time.Now())
	return mw.next.FindByCredentials(ctx, email, password)
}

func (mw instrumentingMiddleware) FindByToken(ctx context.Context, token string) (usersvc.User, error) {
	defer mw.observe("find_by_token", time.Now())
	return mw.next.FindByToken(ctx, token)
}

func (mw instrumentingMiddleware) GenerateAuthToken(ctx context.Context, u *usersvc.User) (string, error) {
	defer mw.observe("generate_auth_token", time.Now())
	return mw.next.GenerateAuthToken(ctx, u)
}

func (mw instrumentingMiddleware) RemoveToken(ctx context.Context, u *usersvc.User, token string) error {
	defer mw.observe("remove_token", time.Now())
	return mw.next.RemoveToken(ctx, u, token)
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}
