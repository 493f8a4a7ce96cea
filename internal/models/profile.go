package models

import (
	"time"

	"gorm.io/gorm"
)

// XPPerLevel is the amount of total XP between two consecutive levels.
const XPPerLevel = 1000

// Profile mirrors the identity provider's user with the battle-relevant counters.
type Profile struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username     string    `gorm:"type:varchar(255)" json:"username"`
	Avatar       string    `gorm:"type:varchar(500)" json:"avatar"`
	XP           int64     `gorm:"default:0;not null" json:"xp"`
	TotalXP      int64     `gorm:"default:0;not null;index" json:"total_xp"`
	Level        int       `gorm:"default:1;not null" json:"level"`
	TotalBattles int       `gorm:"default:0;not null" json:"total_battles"`
	BattlesWon   int       `gorm:"default:0;not null" json:"battles_won"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LevelForTotalXP returns the level reached with the given lifetime XP
func LevelForTotalXP(totalXP int64) int {
	level := int(totalXP/XPPerLevel) + 1
	if level < 1 {
		return 1
	}
	return level
}

// ApplyXP credits amount to the profile and recomputes its level
func (p *Profile) ApplyXP(amount int64) {
	p.XP += amount
	p.TotalXP += amount
	p.Level = LevelForTotalXP(p.TotalXP)
}

// XPToNextLevel returns XP still needed to reach the next level
func (p *Profile) XPToNextLevel() int64 {
	next := int64(LevelForTotalXP(p.TotalXP)) * XPPerLevel
	return next - p.TotalXP
}

// WinRate returns battles won as a percentage of battles played
func (p *Profile) WinRate() int {
	if p.TotalBattles == 0 {
		return 0
	}
	return p.BattlesWon * 100 / p.TotalBattles
}

// BeforeSave hook for validation
func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if p.ID == "" {
		return gorm.ErrInvalidData
	}
	if p.XP < 0 || p.TotalXP < 0 {
		return gorm.ErrInvalidData
	}
	if p.BattlesWon > p.TotalBattles {
		return gorm.ErrInvalidData
	}
	if p.Level < 1 {
		p.Level = 1
	}
	return nil
}

func (Profile) TableName() string {
	return "profiles"
}
