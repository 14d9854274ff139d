package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariselabs/arise-server/api/rest"
	"github.com/ariselabs/arise-server/audit"
	"github.com/ariselabs/arise-server/cache"
	"github.com/ariselabs/arise-server/config"
	"github.com/ariselabs/arise-server/game/quest"
	"github.com/ariselabs/arise-server/game/verification"
	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"github.com/ariselabs/arise-server/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdminKey = "test-admin-key"

type fixture struct {
	r        *gin.Engine
	db       *gorm.DB
	cache    cache.Cache
	notifier *notify.Service
	quests   *quest.Service
	verif    *verification.Service
	auditor  *audit.Service
	sec      config.SecurityConfig
}

// newFixture wires the REST surface the way main does, on an in-memory
// database. AI verification approves deterministically.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	hub := notify.NewHub(logger)
	t.Cleanup(hub.CloseAll)
	notifier := notify.NewService(db, hub, 0, logger)
	auditor := audit.NewService(db, logger)
	t.Cleanup(auditor.Close)

	questSvc := quest.NewService(db, notifier, auditor, func() float64 { return 0 }, logger)
	verifSvc := verification.NewService(db, questSvc, notifier, auditor, 0.7,
		func() float64 { return 0.1 }, logger)

	sec := config.SecurityConfig{
		JWTSecret: "test-secret",
		JWTTTLH:   72 * time.Hour,
	}
	game := config.GameConfig{
		CustomQuestMaxHours: 72,
		AIVerifySuccessRate: 0.7,
	}

	ps, err := cache.NewPubSub(cache.Config{})
	require.NoError(t, err)

	authH := rest.NewAuthHandler(db, c, sec)
	hunterH := rest.NewHunterHandler(db)
	questH := rest.NewQuestHandler(questSvc, verifSvc, game)
	shopH := rest.NewShopHandler(db)
	collH := rest.NewCollectionHandler(db)
	notifH := rest.NewNotificationHandler(notifier)
	rankH := rest.NewRankingHandler(db, c, logger)
	adminH := rest.NewAdminHandler(db, questSvc, verifSvc, notifier, auditor, ps, logger)

	r := gin.New()
	api := r.Group("/api")
	{
		api.POST("/auth/register", authH.Register)
		api.POST("/auth/login", authH.Login)
		api.POST("/auth/logout", mw.Auth(sec, c), authH.Logout)
		api.POST("/auth/refresh", mw.Auth(sec, c), authH.Refresh)

		hunterG := api.Group("/hunter", mw.Auth(sec, c))
		hunterG.GET("", hunterH.Profile)
		hunterG.POST("/stats", hunterH.AllocateStats)

		questG := api.Group("/quests", mw.Auth(sec, c))
		questG.POST("/custom", questH.CreateCustom)
		questG.GET("/:filter", questH.List)
		questG.POST("/:id/accept", questH.Accept)
		questG.POST("/:id/progress", questH.Progress)
		questG.POST("/:id/complete", questH.Complete)
		questG.POST("/:id/abandon", questH.Abandon)
		questG.POST("/:id/proof", questH.SubmitProof)

		shopG := api.Group("/shop", mw.Auth(sec, c))
		shopG.GET("", shopH.List)
		shopG.POST("/buy", shopH.Buy)

		collG := api.Group("/collection", mw.Auth(sec, c))
		collG.GET("/items", collH.Inventory)
		collG.GET("/skills", collH.Skills)
		collG.GET("/titles", collH.Titles)
		collG.POST("/titles/:id/equip", collH.EquipTitle)
		collG.GET("/shadows", collH.Shadows)

		notifG := api.Group("/notifications", mw.Auth(sec, c))
		notifG.GET("", notifH.Unread)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/:id/displayed", notifH.MarkDisplayed)

		api.GET("/ranking", rankH.Top)

		adminG := api.Group("/admin", rest.AdminAuth(testAdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.GET("/verifications", adminH.PendingVerifications)
		adminG.POST("/verifications/:id/review", adminH.ReviewVerification)
		adminG.POST("/quests", adminH.CreateQuest)
		adminG.POST("/announce", adminH.Announce)
		adminG.GET("/audit", adminH.AuditTrail)
	}

	return &fixture{
		r: r, db: db, cache: c,
		notifier: notifier, quests: questSvc, verif: verifSvc, auditor: auditor,
		sec: sec,
	}
}

// register creates an account through the API and returns its bearer token.
func (f *fixture) register(t *testing.T, username string) string {
	t.Helper()
	w := postJSON(f.r, "/api/auth/register", gin.H{
		"username": username,
		"password": "hunter1234",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// seedQuest inserts a quest template directly.
func (f *fixture) seedQuest(t *testing.T, mutate func(*model.Quest)) *model.Quest {
	t.Helper()
	q := &model.Quest{
		Title:             "Daily Training",
		Type:              model.QuestTypeDaily,
		Difficulty:        "E",
		RewardExperience:  50,
		RewardCurrency:    20,
		PenaltyExperience: 30,
		PenaltyCurrency:   10,
		TimeLimitHours:    24,
		IsActive:          true,
	}
	if mutate != nil {
		mutate(q)
	}
	require.NoError(t, f.db.Create(q).Error)
	return q
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getReq(r *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}
