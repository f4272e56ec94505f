package sale

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/promo-engine/internal/domain/pricing"
	"github.com/xenking/promo-engine/internal/domain/product"
)

func testDiscount(t *testing.T, percentage int) pricing.Discount {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d, err := pricing.NewDiscount(percentage, "test", start, start.AddDate(1, 0, 0))
	require.NoError(t, err)
	return d
}

func TestNew(t *testing.T) {
	discount := testDiscount(t, 20)

	t.Run("rejects sale with no targets", func(t *testing.T) {
		_, err := New(uuid.New(), discount, nil, nil, nil)
		require.ErrorIs(t, err, ErrNoTargets)
	})

	t.Run("exclusions alone are not targets", func(t *testing.T) {
		_, err := New(uuid.New(), discount, nil, nil, []product.ID{"p1"})
		require.ErrorIs(t, err, ErrNoTargets)
	})

	t.Run("one product is enough", func(t *testing.T) {
		s, err := New(uuid.New(), discount, nil, []product.ID{"p1"}, nil)
		require.NoError(t, err)
		assert.Len(t, s.ProductsOnSale, 1)
	})

	t.Run("one category is enough", func(t *testing.T) {
		s, err := New(uuid.New(), discount, []product.CategoryID{"c1"}, nil, nil)
		require.NoError(t, err)
		assert.Len(t, s.CategoriesOnSale, 1)
	})
}

func TestSale_AppliesTo(t *testing.T) {
	discount := testDiscount(t, 20)

	tests := []struct {
		name       string
		categories []product.CategoryID
		products   []product.ID
		excluded   []product.ID
		productID  product.ID
		productCat []product.CategoryID
		want       bool
	}{
		{
			name:      "directly listed product",
			products:  []product.ID{"p1"},
			productID: "p1",
			want:      true,
		},
		{
			name:      "unlisted product",
			products:  []product.ID{"p1"},
			productID: "p2",
			want:      false,
		},
		{
			name:       "product in targeted category",
			categories: []product.CategoryID{"c1"},
			products:   []product.ID{"p9"},
			productID:  "p1",
			productCat: []product.CategoryID{"c1", "c2"},
			want:       true,
		},
		{
			name:       "product in unrelated category",
			categories: []product.CategoryID{"c1"},
			products:   []product.ID{"p9"},
			productID:  "p1",
			productCat: []product.CategoryID{"c3"},
			want:       false,
		},
		{
			name:       "exclusion wins over category inclusion",
			categories: []product.CategoryID{"c1"},
			excluded:   []product.ID{"p1"},
			productID:  "p1",
			productCat: []product.CategoryID{"c1"},
			want:       false,
		},
		{
			name:      "exclusion wins over direct inclusion",
			products:  []product.ID{"p1"},
			excluded:  []product.ID{"p1"},
			productID: "p1",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(uuid.New(), discount, tt.categories, tt.products, tt.excluded)
			require.NoError(t, err)

			assert.Equal(t, tt.want, s.AppliesTo(tt.productID, tt.productCat))
		})
	}
}

func TestSale_Replace(t *testing.T) {
	s, err := New(uuid.New(), testDiscount(t, 20), nil, []product.ID{"p1"}, nil)
	require.NoError(t, err)

	t.Run("rejects empty replacement and keeps old state", func(t *testing.T) {
		err := s.Replace(testDiscount(t, 30), nil, nil, nil)
		require.ErrorIs(t, err, ErrNoTargets)
		assert.Equal(t, 20, s.Discount.Percentage)
		assert.Contains(t, s.ProductsOnSale, product.ID("p1"))
	})

	t.Run("swaps all sets wholesale", func(t *testing.T) {
		err := s.Replace(testDiscount(t, 30), []product.CategoryID{"c1"}, nil, []product.ID{"p1"})
		require.NoError(t, err)
		assert.Equal(t, 30, s.Discount.Percentage)
		assert.Empty(t, s.ProductsOnSale)
		assert.Contains(t, s.CategoriesOnSale, product.CategoryID("c1"))
		assert.Contains(t, s.ProductsExcluded, product.ID("p1"))
	})
}
