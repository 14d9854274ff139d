package model

import "time"

// Rank letters ordered weakest to strongest.
const (
	RankE = "E"
	RankD = "D"
	RankC = "C"
	RankB = "B"
	RankA = "A"
	RankS = "S"
)

// Account represents a hunter account with its full character sheet.
type Account struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string     `gorm:"size:128" json:"email"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Role         string     `gorm:"size:16;default:hunter" json:"role"` // hunter | admin
	Status       int        `gorm:"default:1" json:"status"`            // 0=banned 1=normal

	Level             int    `gorm:"default:1" json:"level"`
	Experience        int64  `gorm:"default:0" json:"experience"`
	ExperienceToNext  int64  `gorm:"default:100" json:"experience_to_next"`
	// "rank" is a reserved word in MySQL; raw queries rely on the renamed column.
	Rank              string `gorm:"column:hunter_rank;size:1;default:E" json:"rank"`
	StatPoints        int    `gorm:"default:0" json:"stat_points"`
	Currency          int64  `gorm:"default:0" json:"currency"`

	Strength     int `gorm:"default:10" json:"strength"`
	Agility      int `gorm:"default:10" json:"agility"`
	Vitality     int `gorm:"default:10" json:"vitality"`
	Intelligence int `gorm:"default:10" json:"intelligence"`
	Perception   int `gorm:"default:10" json:"perception"`
	Sense        int `gorm:"default:10" json:"sense"`

	HP    int `gorm:"not null" json:"hp"`
	MaxHP int `gorm:"not null" json:"max_hp"`
	MP    int `gorm:"not null" json:"mp"`
	MaxMP int `gorm:"not null" json:"max_mp"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `gorm:"size:45" json:"last_login_ip"`
}
