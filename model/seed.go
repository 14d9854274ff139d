package model

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func drops(entries ...ItemDrop) datatypes.JSON {
	b, _ := json.Marshal(entries)
	return datatypes.JSON(b)
}

// seedQuests is the system quest catalog created on first boot.
var seedQuests = []Quest{
	{
		Title:            "Daily Training",
		Description:      "100 push-ups, 100 sit-ups, 100 squats, 10km run.",
		Type:             QuestTypeDaily,
		Difficulty:       RankE,
		RewardExperience: 50,
		RewardCurrency:   20,
		TimeLimitHours:   24,
	},
	{
		Title:             "Emergency: Gate Breach",
		Description:       "Finish your most urgent pending task within the hour.",
		Type:              QuestTypeEmergency,
		Difficulty:        RankC,
		RewardExperience:  200,
		RewardCurrency:    100,
		RewardStatPoints:  2,
		PenaltyExperience: 50,
		PenaltyCurrency:   25,
		TimeLimitHours:    1,
		RewardItems:       drops(ItemDrop{ItemID: 2, Rate: 25, Qty: 1}),
	},
	{
		Title:             "Punishment: Idle Hands",
		Description:       "You skipped a daily quest. Clear the backlog to atone.",
		Type:              QuestTypePunishment,
		Difficulty:        RankD,
		RewardExperience:  30,
		PenaltyExperience: 100,
		PenaltyCurrency:   50,
		TimeLimitHours:    4,
	},
	{
		Title:              "Main: Clear the Red Gate",
		Description:        "Ship the project milestone. Proof required.",
		Type:               QuestTypeMain,
		Difficulty:         RankA,
		RewardExperience:   1000,
		RewardCurrency:     500,
		RewardStatPoints:   5,
		TimeLimitHours:     72,
		RequiresProof:      true,
		ProofType:          ProofImage,
		VerificationMethod: VerifyManual,
		ShadowReward:       "Igris",
		RewardItems:        drops(ItemDrop{ItemID: 3, Rate: 10, Qty: 1}),
	},
}

var seedItems = []Item{
	{Name: "Lesser Healing Potion", Rarity: RankE, Price: 50, Description: "Restores a little HP."},
	{Name: "Mana Crystal", Rarity: RankD, Price: 120, Description: "Restores MP."},
	{Name: "Elixir of the Monarch", Rarity: RankS, Price: 0, Description: "Fully restores HP and MP. Quest drop only."},
}

var seedSkills = []Skill{
	{Name: "Sprint", Rank: RankE, UnlockLevel: 1, MPCost: 5, Description: "Move faster for a short time."},
	{Name: "Bloodlust", Rank: RankC, UnlockLevel: 10, MPCost: 25, Description: "Intimidate weaker foes."},
	{Name: "Stealth", Rank: RankB, UnlockLevel: 20, MPCost: 40, Description: "Become invisible to enemies."},
	{Name: "Shadow Exchange", Rank: RankS, UnlockLevel: 50, MPCost: 200, Description: "Swap positions with a shadow."},
}

var seedTitles = []Title{
	{Name: "Wolf Slayer", RequiredLevel: 5, Description: "Survived the early grind."},
	{Name: "The One Who Overcame Adversity", RequiredLevel: 20, Description: "Cleared twenty levels of trials."},
	{Name: "Shadow Monarch", RequiredLevel: 50, Description: "Reached the apex."},
}

// SeedDefaults inserts the system quest/item/skill/title catalogs if the
// quest table is empty. Safe to call on every boot.
func SeedDefaults(db *gorm.DB) error {
	var existing []Quest
	if err := db.Select("id").Limit(1).Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := range seedItems {
		if err := db.Create(&seedItems[i]).Error; err != nil {
			return err
		}
	}
	for i := range seedSkills {
		if err := db.Create(&seedSkills[i]).Error; err != nil {
			return err
		}
	}
	for i := range seedTitles {
		if err := db.Create(&seedTitles[i]).Error; err != nil {
			return err
		}
	}
	for i := range seedQuests {
		if err := db.Create(&seedQuests[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
