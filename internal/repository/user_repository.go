package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"aimsite/internal/model"
)

// UserRepository reads and writes site accounts. Lookups return (nil, nil)
// for a missing user so callers can distinguish absence from a query error.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	return r.getOne("username = ?", username)
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	return r.getOne("email = ?", email)
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	return r.getOne("id = ?", id)
}

func (r *UserRepository) getOne(cond string, arg any) (*model.User, error) {
	var user model.User
	if err := r.db.Where(cond, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user failed: %w", err)
	}
	return &user, nil
}
