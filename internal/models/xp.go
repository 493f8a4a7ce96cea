package models

import (
	"time"
)

type XPLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Source      string    `gorm:"type:varchar(50);not null;index" json:"source"`
	Description string    `gorm:"type:text" json:"description"`
	MatchID     *string   `gorm:"type:varchar(36);uniqueIndex" json:"match_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// XP source constants
const (
	XPSourceBattleWin = "battle_win"
	XPSourceAdmin     = "admin_adjustment"
)

func (XPLog) TableName() string {
	return "xp_logs"
}
