package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/moodshop-api/internal/catalog"
	"github.com/flicky/moodshop-api/internal/dto"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/repository"
)

const productCacheTTL = 60 * time.Second

const (
	SortFeatured  = "featured"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
)

const filterAll = "all"

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient}
}

// GetByID reads through a short-lived Redis cache.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	cacheKey := "product:" + strconv.FormatInt(id, 10)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

// Lookup returns the catalog product itself, for callers that snapshot
// product data such as the cart.
func (s *ProductService) Lookup(ctx context.Context, id int64) (*model.Product, error) {
	resp, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Product{
		ID: resp.ID, Name: resp.Name, Description: resp.Description, Price: resp.Price,
		Image: resp.Image, Mood: resp.Mood, Category: resp.Category,
	}, nil
}

// List filters by mood and category, matches the search text against name
// and description case-insensitively, then sorts. Unknown sort keys keep
// catalog order.
func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	var mood *model.Mood
	if req.Mood != "" && req.Mood != filterAll {
		m := model.Mood(req.Mood)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMood, req.Mood)
		}
		mood = &m
	}

	category := model.Category(req.Category)
	if req.Category != "" && req.Category != filterAll && !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, req.Category)
	}

	products, err := s.productRepo.List(ctx, mood)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	filtered := make([]model.Product, 0, len(products))
	for _, p := range products {
		if req.Category != "" && req.Category != filterAll && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, req.Sort)

	items := make([]dto.ProductResponse, 0, len(filtered))
	for i := range filtered {
		items = append(items, toProductResponse(&filtered[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: len(items)}, nil
}

func sortProducts(products []model.Product, by string) {
	switch by {
	case SortPriceLow:
		slices.SortStableFunc(products, func(a, b model.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(products, func(a, b model.Product) int { return b.Price.Cmp(a.Price) })
	case SortName:
		slices.SortStableFunc(products, func(a, b model.Product) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}
}

// Recommend returns the mood's copy and products. Empty or unknown moods
// fall back to happy.
func (s *ProductService) Recommend(ctx context.Context, mood string) (*dto.RecommendationResponse, error) {
	info, ok := catalog.Mood(model.Mood(mood))
	if !ok {
		info, _ = catalog.Mood(model.MoodHappy)
	}

	products, err := s.productRepo.List(ctx, &info.Mood)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return &dto.RecommendationResponse{MoodResponse: toMoodResponse(info), Products: items}, nil
}

func (s *ProductService) Moods() []dto.MoodResponse {
	out := make([]dto.MoodResponse, 0, len(model.Moods))
	for _, m := range model.Moods {
		info, _ := catalog.Mood(m)
		out = append(out, toMoodResponse(info))
	}
	return out
}

func (s *ProductService) Categories() []dto.CategoryResponse {
	out := make([]dto.CategoryResponse, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, dto.CategoryResponse{ID: c, Label: catalog.CategoryLabel(c)})
	}
	return out
}

func toMoodResponse(info catalog.MoodInfo) dto.MoodResponse {
	return dto.MoodResponse{Mood: info.Mood, Title: info.Title, Description: info.Description}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		Image:         p.Image,
		Mood:          p.Mood,
		Category:      p.Category,
		CategoryLabel: catalog.CategoryLabel(p.Category),
	}
}
