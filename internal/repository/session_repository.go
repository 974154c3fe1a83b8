package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"aimsite/internal/model"
)

// SessionRepository manages chat sessions. Every accessor scopes by user id
// so one user can never read or delete another user's conversation.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// ListByUserID returns the user's sessions, most recently active first.
func (r *SessionRepository) ListByUserID(userID uint) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// GetByIDAndUserID returns (nil, nil) when the session does not exist or
// belongs to another user.
func (r *SessionRepository) GetByIDAndUserID(sessionID, userID uint) (*model.Session, error) {
	var session model.Session
	err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) DeleteByIDAndUserID(sessionID, userID uint) error {
	err := r.db.Where("id = ? AND user_id = ?", sessionID, userID).
		Delete(&model.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
