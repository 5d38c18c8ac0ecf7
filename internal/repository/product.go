package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/moodshop-api/internal/catalog"
	"github.com/flicky/moodshop-api/internal/model"
)

// ProductRepository is the catalog read boundary. A nil mood lists every
// product in catalog order.
type ProductRepository interface {
	List(ctx context.Context, mood *model.Mood) ([]model.Product, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, name, description, price, image, mood, category`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Mood, &p.Category)
}

func (r *pgProductRepo) List(ctx context.Context, mood *model.Mood) ([]model.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if mood == nil {
		rows, err = r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE mood = $1 ORDER BY id`, string(*mood))
	}
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// staticProductRepo serves the built-in catalog from memory. Tests use it in
// place of Postgres.
type staticProductRepo struct {
	products []model.Product
}

func NewStaticProductRepository() ProductRepository {
	return &staticProductRepo{products: catalog.Products()}
}

func (r *staticProductRepo) List(_ context.Context, mood *model.Mood) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if mood == nil || p.Mood == *mood {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *staticProductRepo) GetByID(_ context.Context, id int64) (*model.Product, error) {
	for _, p := range r.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}
