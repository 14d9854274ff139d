package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ariselabs/arise-server/cache"
	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler serves the hunter leaderboard, cached in a sorted set and
// rebuilt periodically by the scheduler.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, logger: logger}
}

const rankingZKey = "ranking:exp"
const rankingTop = 100

// RankEntry is one row in the leaderboard. Score is total accumulated
// experience across all levels.
type RankEntry struct {
	Rank     int    `json:"rank"`
	HunterID int64  `json:"hunter_id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	HunterRk string `json:"hunter_rank"`
	Score    int64  `json:"score"`
}

// Top handles GET /api/ranking?limit=20.
func (h *RankingHandler) Top(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, rankingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			hunterID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, rankingZKey, m)
			entries = append(entries, RankEntry{
				Rank:     i + 1,
				HunterID: hunterID,
				Score:    int64(score),
			})
		}
		h.enrich(entries)
		c.JSON(http.StatusOK, gin.H{"success": true, "ranking": entries})
		return
	}

	// Fall back to DB query and warm the cache on the way out.
	entries := h.queryTop(ctx, limit)
	c.JSON(http.StatusOK, gin.H{"success": true, "ranking": entries})
}

// Rebuild refreshes the sorted set from the database. Called by the
// scheduler.
func (h *RankingHandler) Rebuild(ctx context.Context) error {
	var accounts []model.Account
	if err := h.db.WithContext(ctx).
		Select("id, level, experience").
		Where("status = ?", 1).
		Order("level DESC, experience DESC").
		Limit(rankingTop).
		Find(&accounts).Error; err != nil {
		return err
	}
	for _, acc := range accounts {
		_ = h.cache.ZAdd(ctx, rankingZKey, rankingScore(&acc), strconv.FormatInt(acc.ID, 10))
	}
	h.logger.Debug("leaderboard rebuilt", zap.Int("count", len(accounts)))
	return nil
}

func (h *RankingHandler) queryTop(ctx context.Context, limit int) []RankEntry {
	var accounts []model.Account
	h.db.WithContext(ctx).
		Select("id, username, level, experience, hunter_rank").
		Where("status = ?", 1).
		Order("level DESC, experience DESC").
		Limit(limit).
		Find(&accounts)

	entries := make([]RankEntry, len(accounts))
	for i, acc := range accounts {
		entries[i] = RankEntry{
			Rank:     i + 1,
			HunterID: acc.ID,
			Username: acc.Username,
			Level:    acc.Level,
			HunterRk: acc.Rank,
			Score:    int64(rankingScore(&acc)),
		}
		_ = h.cache.ZAdd(ctx, rankingZKey, rankingScore(&acc), strconv.FormatInt(acc.ID, 10))
	}
	return entries
}

func (h *RankingHandler) enrich(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.HunterID
	}
	var accounts []model.Account
	h.db.Select("id, username, level, hunter_rank").Where("id IN ?", ids).Find(&accounts)
	byID := make(map[int64]model.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}
	for i := range entries {
		if acc, ok := byID[entries[i].HunterID]; ok {
			entries[i].Username = acc.Username
			entries[i].Level = acc.Level
			entries[i].HunterRk = acc.Rank
		}
	}
}

// rankingScore orders primarily by level, then by progress into the level.
// Experience within a level never exceeds the threshold, so the multiplier
// keeps levels strictly separated.
func rankingScore(acc *model.Account) float64 {
	return float64(acc.Level)*1e12 + float64(acc.Experience)
}
