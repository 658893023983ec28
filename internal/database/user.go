package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm/clause"
)

// AuthorizedUser is a Telegram user allowed to convert files.
// The presence of a record is the only thing that grants access.
type AuthorizedUser struct {
	UserID  int64     `gorm:"primaryKey;autoIncrement:false" bson:"user_id" json:"user_id"`
	AddedAt time.Time `gorm:"not null" bson:"added_at" json:"added_at"`
}

func (c *Client) AddAuthorizedUser(ctx context.Context, userID int64) error {
	user := AuthorizedUser{
		UserID:  userID,
		AddedAt: time.Now().UTC(),
	}
	// keep the original added_at when the user is already present
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
		log.Error("failed to add authorized user", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (c *Client) RemoveAuthorizedUser(ctx context.Context, userID int64) error {
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&AuthorizedUser{}).Error; err != nil {
		log.Error("failed to remove authorized user", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (c *Client) IsAuthorizedUser(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&AuthorizedUser{}).Where("user_id = ?", userID).Limit(1).Count(&count).Error; err != nil {
		log.Error("failed to check authorized user", "user_id", userID, "error", err)
		return false, err
	}
	return count > 0, nil
}

func (c *Client) GetAuthorizedUsers(ctx context.Context) ([]AuthorizedUser, error) {
	var users []AuthorizedUser
	if err := c.db.WithContext(ctx).Find(&users).Error; err != nil {
		log.Error("failed to get authorized users", "error", err)
		return nil, err
	}
	return users, nil
}
