// Package catalog holds the storefront's static product catalog and the
// copy shown next to mood recommendations.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/flicky/moodshop-api/internal/model"
)

const placeholderImage = "/placeholder.svg?height=200&width=200"

type MoodInfo struct {
	Mood        model.Mood
	Title       string
	Description string
}

var moodInfo = map[model.Mood]MoodInfo{
	model.MoodHappy: {
		Mood:        model.MoodHappy,
		Title:       "Happy & Joyful",
		Description: "You're in a positive and joyful mood! Here are some products to celebrate and enhance your happiness.",
	},
	model.MoodCalm: {
		Mood:        model.MoodCalm,
		Title:       "Calm & Peaceful",
		Description: "You're feeling peaceful and relaxed. These products can help maintain your tranquil state of mind.",
	},
	model.MoodSad: {
		Mood:        model.MoodSad,
		Title:       "Looking for Comfort",
		Description: "You might be feeling down right now. These products are designed to provide comfort and support.",
	},
	model.MoodEnergetic: {
		Mood:        model.MoodEnergetic,
		Title:       "Energetic & Active",
		Description: "You're full of energy and ready for action! These products can help channel your enthusiasm.",
	},
}

// Mood returns the display copy for m. ok is false for unknown moods.
func Mood(m model.Mood) (MoodInfo, bool) {
	info, ok := moodInfo[m]
	return info, ok
}

var categoryLabels = map[model.Category]string{
	model.CategoryGiftSets:    "Gift Sets",
	model.CategoryHome:        "Home & Living",
	model.CategoryWellness:    "Wellness",
	model.CategoryElectronics: "Electronics",
	model.CategoryStationery:  "Stationery",
	model.CategoryFoodDrink:   "Food & Drink",
	model.CategoryDigital:     "Digital Products",
}

func CategoryLabel(c model.Category) string {
	return categoryLabels[c]
}

// Products returns a fresh copy of the seed catalog in featured order.
func Products() []model.Product {
	out := make([]model.Product, len(seed))
	copy(out, seed)
	return out
}

func product(id int64, name, price, description string, mood model.Mood, category model.Category) model.Product {
	return model.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       decimal.RequireFromString(price),
		Image:       placeholderImage,
		Mood:        mood,
		Category:    category,
	}
}

var seed = []model.Product{
	product(1, "Celebration Box", "39.99", "A curated box of treats to celebrate good moments.", model.MoodHappy, model.CategoryGiftSets),
	product(2, "Gratitude Journal", "14.99", "Record your daily moments of joy and gratitude.", model.MoodHappy, model.CategoryStationery),
	product(3, "Party Lights", "24.99", "Colorful LED lights to enhance your happy atmosphere.", model.MoodHappy, model.CategoryHome),
	product(4, "Upbeat Playlist Subscription", "9.99", "Access to curated playlists that boost your mood.", model.MoodHappy, model.CategoryDigital),
	product(5, "Calming Tea Set", "24.99", "A selection of herbal teas to help you relax and unwind.", model.MoodCalm, model.CategoryFoodDrink),
	product(6, "Aromatherapy Diffuser", "34.99", "Essential oil diffuser with calming scents.", model.MoodCalm, model.CategoryHome),
	product(7, "Meditation Cushion", "29.99", "Comfortable cushion for your meditation practice.", model.MoodCalm, model.CategoryWellness),
	product(8, "Sound Machine", "19.99", "Create a peaceful environment with nature sounds.", model.MoodCalm, model.CategoryElectronics),
	product(9, "Comfort Blanket", "34.99", "A soft, weighted blanket for those days when you need extra comfort.", model.MoodSad, model.CategoryHome),
	product(10, "Self-Care Box", "44.99", "A collection of items to help you practice self-care.", model.MoodSad, model.CategoryGiftSets),
	product(11, "Mood-Boosting Lamp", "49.99", "Light therapy lamp to help improve your mood.", model.MoodSad, model.CategoryElectronics),
	product(12, "Comforting Playlist Subscription", "9.99", "Access to music that provides comfort and support.", model.MoodSad, model.CategoryDigital),
	product(13, "Energizing Fitness Kit", "49.99", "Everything you need for a quick workout to boost your energy.", model.MoodEnergetic, model.CategoryWellness),
	product(14, "Protein Snack Box", "29.99", "Healthy snacks to fuel your active lifestyle.", model.MoodEnergetic, model.CategoryFoodDrink),
	product(15, "Wireless Earbuds", "59.99", "High-quality earbuds for your energetic music or podcasts.", model.MoodEnergetic, model.CategoryElectronics),
	product(16, "Productivity Planner", "19.99", "Plan your day efficiently and channel your energy.", model.MoodEnergetic, model.CategoryStationery),
}
