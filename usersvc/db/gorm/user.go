package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ichigozero/todokit/usersvc"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(ctx context.Context, user *usersvc.User) error {
	result := u.db.WithContext(ctx).Omit(clause.Associations).Create(user)
	if result.Error != nil {
		return fmt.Errorf("create user: %w", result.Error)
	}
	return nil
}

func (u *userRepository) Save(ctx context.Context, user *usersvc.User) error {
	result := u.db.WithContext(ctx).Omit(clause.Associations).Save(user)
	if result.Error != nil {
		return fmt.Errorf("save user: %w", result.Error)
	}
	return nil
}

func (u *userRepository) FindByID(ctx context.Context, id string) (usersvc.User, error) {
	return u.first(ctx, "id = ?", id)
}

func (u *userRepository) FindByEmail(ctx context.Context, email string) (usersvc.User, error) {
	return u.first(ctx, "email = ?", email)
}

func (u *userRepository) first(ctx context.Context, query string, arg interface{}) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.WithContext(ctx).
		Preload("Sessions", func(db *libgorm.DB) *libgorm.DB { return db.Order("id") }).
		Where(query, arg).
		First(&user)

	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	if result.Error != nil {
		return usersvc.User{}, fmt.Errorf("find user: %w", result.Error)
	}
	return user, nil
}

func (u *userRepository) AppendSession(ctx context.Context, userID string, s *usersvc.Session) error {
	s.UserID = userID
	result := u.db.WithContext(ctx).Create(s)
	if result.Error != nil {
		return fmt.Errorf("append session: %w", result.Error)
	}
	return nil
}

func (u *userRepository) RemoveSession(ctx context.Context, userID, token string) error {
	result := u.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&usersvc.Session{})
	if result.Error != nil {
		return fmt.Errorf("remove session: %w", result.Error)
	}
	return nil
}
