package inventory

import (
	"context"
	"errors"
)

var ErrDuplicateID = errors.New("item id already exists")

type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Store keeps items in insertion order. Get, Update and Delete report a
// missing id through the bool result rather than an error.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	Create(ctx context.Context, it Item) error
	Update(ctx context.Context, it Item) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

func SeedItems() []Item {
	return []Item{
		{ID: "1", Name: "Laptop", Description: "Laptop de alto rendimiento", Quantity: 10, Price: 1200},
		{ID: "2", Name: "Mouse", Description: "Mouse inalámbrico ergonómico", Quantity: 50, Price: 25},
		{ID: "3", Name: "Teclado", Description: "Teclado mecánico retroiluminado", Quantity: 30, Price: 75},
		{ID: "4", Name: "Monitor", Description: "Monitor 27 pulgadas 4K", Quantity: 15, Price: 350},
	}
}
