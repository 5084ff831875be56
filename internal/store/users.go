package store

import (
	"context"
	"errors"
	"time"

	"affiliate-link/internal/model"

	"gorm.io/gorm"
)

// Users 面板运营账号
type Users struct {
	db *gorm.DB
}

// NewUsers 创建账号仓库
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByUsername 按用户名查询
func (u *Users) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 按 ID 查询
func (u *Users) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := u.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin 更新最后登录时间
func (u *Users) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return u.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}

// EnsureAdmin 账号不存在时创建管理员，已存在则不修改
func (u *Users) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	_, err := u.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	user := model.User{Username: username, Role: model.RoleAdmin, IsActive: true}
	if err := user.SetPassword(password); err != nil {
		return false, err
	}
	if err := u.db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}
