package userservice

import (
	"context"
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
)

// Service is the credential store: user records, password checks and the
// per-user session registry.
type Service interface {
	Save(ctx context.Context, u *usersvc.User) error
	FindByCredentials(ctx context.Context, email, password string) (usersvc.User, error)
	FindByToken(ctx context.Context, token string) (usersvc.User, error)
	GenerateAuthToken(ctx context.Context, u *usersvc.User) (string, error)
	RemoveToken(ctx context.Context, u *usersvc.User, token string) error
}

// Tokenizer is the part of the token service the credential store needs.
type Tokenizer interface {
	Issue(userID, access string) (string, error)
	Verify(token string) (authsvc.Payload, error)
}

func New(users usersvc.UserRepository, t Tokenizer, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     usersvc.UserRepository
	tokenizer Tokenizer
}

func NewBasicService(users usersvc.UserRepository, t Tokenizer) Service {
	return &basicService{users: users, tokenizer: t}
}

// Save validates and persists u, inserting it when it has no ID yet. The
// password is hashed only when u.Password holds a freshly set plaintext;
// it is cleared afterwards so a second save leaves the hash alone.
func (s *basicService) Save(ctx context.Context, u *usersvc.User) error {
	if u == nil {
		return usersvc.ErrInvalidArgument
	}

	u.Email = usersvc.NormalizeEmail(u.Email)
	if err := usersvc.ValidateEmail(u.Email); err != nil {
		return err
	}

	if u.Password != "" {
		u.Password = usersvc.NormalizePassword(u.Password)
		if err := usersvc.ValidatePassword(u.Password); err != nil {
			return err
		}
	} else if u.PasswordHash == "" {
		return usersvc.ValidatePassword(u.Password)
	}

	existing, err := s.users.FindByEmail(ctx, u.Email)
	switch {
	case err == nil && existing.ID != u.ID:
		return usersvc.ErrEmailTaken
	case err != nil && !errors.Is(err, usersvc.ErrUserNotFound):
		return err
	}

	record := *u
	if record.Password != "" {
		hash, err := usersvc.HashPassword(record.Password)
		if err != nil {
			return err
		}
		record.PasswordHash = hash
		record.Password = ""
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
		err = s.users.Create(ctx, &record)
	} else {
		err = s.users.Save(ctx, &record)
	}
	if err != nil {
		return err
	}

	*u = record
	return nil
}

// FindByCredentials fails with ErrInvalidCredentials whether the email is
// unknown or the password is wrong.
func (s *basicService) FindByCredentials(ctx context.Context, email, password string) (usersvc.User, error) {
	password = usersvc.NormalizePassword(password)
	user, err := s.users.FindByEmail(ctx, usersvc.NormalizeEmail(email))
	if errors.Is(err, usersvc.ErrUserNotFound) {
		usersvc.VerifyPassword(password, dummyHash)
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	if err != nil {
		return usersvc.User{}, err
	}

	if !usersvc.VerifyPassword(password, user.PasswordHash) {
		return usersvc.User{}, usersvc.ErrInvalidCredentials
	}
	return user, nil
}

// FindByToken resolves the owner of a registered auth token. Every reason
// for rejecting the token yields ErrUserNotFound; only store failures are
// returned as they are.
func (s *basicService) FindByToken(ctx context.Context, token string) (usersvc.User, error) {
	payload, err := s.tokenizer.Verify(token)
	if err != nil || payload.Access != usersvc.AccessAuth {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}

	user, err := s.users.FindByID(ctx, payload.UserID)
	if err != nil {
		return usersvc.User{}, err
	}

	if !user.HasSession(usersvc.AccessAuth, token) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	return user, nil
}

// GenerateAuthToken returns a new auth token only after it is recorded in
// the user's sessions.
func (s *basicService) GenerateAuthToken(ctx context.Context, u *usersvc.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", usersvc.ErrInvalidArgument
	}

	token, err := s.tokenizer.Issue(u.ID, usersvc.AccessAuth)
	if err != nil {
		return "", err
	}

	session := usersvc.Session{Access: usersvc.AccessAuth, Token: token}
	if err := s.users.AppendSession(ctx, u.ID, &session); err != nil {
		return "", err
	}

	u.Sessions = append(u.Sessions, session)
	return token, nil
}

// RemoveToken drops token from the user's sessions. Unknown tokens are
// ignored.
func (s *basicService) RemoveToken(ctx context.Context, u *usersvc.User, token string) error {
	if u == nil || u.ID == "" {
		return usersvc.ErrInvalidArgument
	}

	if err := s.users.RemoveSession(ctx, u.ID, token); err != nil {
		return err
	}

	sessions := make([]usersvc.Session, 0, len(u.Sessions))
	for _, session := range u.Sessions {
		if session.Token != token {
			sessions = append(sessions, session)
		}
	}
	u.Sessions = sessions
	return nil
}

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = usersvc.HashPassword("dummy-password")
