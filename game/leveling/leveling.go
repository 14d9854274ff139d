package leveling

import (
	"math"

	"github.com/ariselabs/arise-server/model"
)

// StatPointsPerLevel is granted on every level-up.
const StatPointsPerLevel = 5

// ExperienceToNext returns the experience required to clear the given level:
// 100 * 1.5^(level-1).
func ExperienceToNext(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(100 * math.Pow(1.5, float64(level-1)))
}

// RankForLevel maps a level to a hunter rank letter.
// Thresholds: E<10, D 10-19, C 20-29, B 30-39, A 40-49, S 50+.
func RankForLevel(level int) string {
	switch {
	case level >= 50:
		return model.RankS
	case level >= 40:
		return model.RankA
	case level >= 30:
		return model.RankB
	case level >= 20:
		return model.RankC
	case level >= 10:
		return model.RankD
	default:
		return model.RankE
	}
}

// MaxHP derives maximum HP from level and vitality.
func MaxHP(level, vitality int) int {
	return 100 + 10*(level-1) + 5*vitality
}

// MaxMP derives maximum MP from level and intelligence.
func MaxMP(level, intelligence int) int {
	return 50 + 5*(level-1) + 3*intelligence
}

// Apply grants experience to the account and runs the level-up loop until
// the invariant 0 <= experience < experience_to_next holds again. A single
// large grant may clear several levels in one call. Each level grants
// StatPointsPerLevel points, recomputes max HP/MP (healing to full) and
// recomputes the rank. Returns the number of levels gained.
func Apply(acc *model.Account, exp int64) int {
	if exp < 0 {
		exp = 0
	}
	acc.Experience += exp
	levels := 0
	for acc.Experience >= acc.ExperienceToNext {
		acc.Experience -= acc.ExperienceToNext
		acc.Level++
		levels++
		acc.StatPoints += StatPointsPerLevel
		acc.ExperienceToNext = ExperienceToNext(acc.Level)
		acc.MaxHP = MaxHP(acc.Level, acc.Vitality)
		acc.MaxMP = MaxMP(acc.Level, acc.Intelligence)
		acc.HP = acc.MaxHP
		acc.MP = acc.MaxMP
	}
	if levels > 0 {
		acc.Rank = RankForLevel(acc.Level)
	}
	return levels
}

// ApplyPenalty subtracts experience and currency, clamping both at zero.
// Penalties never demote a level or rank.
func ApplyPenalty(acc *model.Account, exp, currency int64) {
	acc.Experience -= exp
	if acc.Experience < 0 {
		acc.Experience = 0
	}
	acc.Currency -= currency
	if acc.Currency < 0 {
		acc.Currency = 0
	}
}

// InitSheet fills the derived character-sheet fields for a fresh account.
func InitSheet(acc *model.Account) {
	acc.Level = 1
	acc.Experience = 0
	acc.ExperienceToNext = ExperienceToNext(1)
	acc.Rank = RankForLevel(1)
	acc.MaxHP = MaxHP(acc.Level, acc.Vitality)
	acc.MaxMP = MaxMP(acc.Level, acc.Intelligence)
	acc.HP = acc.MaxHP
	acc.MP = acc.MaxMP
}
