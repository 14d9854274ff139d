package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedShopItem(t *testing.T, f *fixture) *model.Item {
	t.Helper()
	item := &model.Item{Name: "Minor Healing Potion", Rarity: "E", Price: 50}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func TestShopList(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")
	seedShopItem(t, f)
	// Unpriced items never show in the shop.
	require.NoError(t, f.db.Create(&model.Item{Name: "Quest Drop Only", Price: 0}).Error)

	w := getReq(f.r, "/api/shop", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Items []model.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Minor Healing Potion", resp.Items[0].Name)
}

func TestShopBuy(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")
	item := seedShopItem(t, f)
	require.NoError(t, f.db.Model(&model.Account{}).
		Where("username = ?", "jinwoo").
		Update("currency", 120).Error)

	w := postJSON(f.r, "/api/shop/buy", gin.H{"item_id": item.ID, "qty": 2}, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Currency int64 `json:"currency"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(20), resp.Currency)

	// Stack lands in the inventory.
	w = getReq(f.r, "/api/collection/items", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	var inv struct {
		Items []struct {
			Qty  int        `json:"qty"`
			Item model.Item `json:"item"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 2, inv.Items[0].Qty)

	// Buying again increments the same stack.
	postJSON(f.r, "/api/shop/buy", gin.H{"item_id": item.ID}, bearer(token)...)
	w = getReq(f.r, "/api/collection/items", bearer(token)...)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 3, inv.Items[0].Qty)
}

func TestShopBuy_NotEnoughGold(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")
	item := seedShopItem(t, f)

	w := postJSON(f.r, "/api/shop/buy", gin.H{"item_id": item.ID}, bearer(token)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShopBuy_UnknownItem(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")

	w := postJSON(f.r, "/api/shop/buy", gin.H{"item_id": 9999}, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
