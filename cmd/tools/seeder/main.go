package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/auth"
	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/db"
	"github.com/noah-isme/backend-pedidos/internal/obs"
)

type seedProduct struct {
	ID         string
	Name       string
	Price      string
	IsTaxable  bool
	CategoryID string
	Extras     []catalog.Extra
}

type seedPromotion struct {
	ID         string
	Name       string
	Type       string
	IsActive   bool
	PromoType  string
	PromoValue string
	AppliesTo  string
	TargetIDs  []string
	Price      string
	Items      []catalog.PackageItem
}

var products = []seedProduct{
	{ID: "prod-hamburguesa", Name: "Hamburguesa Clásica", Price: "80", IsTaxable: true, CategoryID: "cat-hamburguesas", Extras: []catalog.Extra{
		{Name: "Queso Extra", Price: decimal.NewFromInt(15)},
		{Name: "Aguacate", Price: decimal.NewFromInt(20)},
	}},
	{ID: "prod-papas", Name: "Papas Fritas", Price: "40", IsTaxable: true, CategoryID: "cat-complementos"},
	{ID: "prod-refresco", Name: "Refresco", Price: "25", IsTaxable: false, CategoryID: "cat-bebidas"},
	{ID: "prod-pizza", Name: "Pizza Mediana", Price: "200", IsTaxable: true, CategoryID: "cat-pizzas", Extras: []catalog.Extra{
		{Name: "Pepperoni Extra", Price: decimal.NewFromInt(30)},
	}},
	{ID: "prod-ensalada", Name: "Ensalada César", Price: "90", IsTaxable: true, CategoryID: "cat-ensaladas"},
}

var promotions = []seedPromotion{
	{ID: "package-familiar", Name: "Paquete Familiar", Type: catalog.TypePackage, IsActive: true, Price: "120", Items: []catalog.PackageItem{
		{ProductID: "prod-hamburguesa", Name: "Hamburguesa Clásica", Quantity: 1},
		{ProductID: "prod-papas", Name: "Papas Fritas", Quantity: 1},
		{ProductID: "prod-refresco", Name: "Refresco", Quantity: 1},
	}},
	{ID: "promo-bebidas", Name: "20% en bebidas", Type: "promotion", IsActive: true, PromoType: "percentage", PromoValue: "20", AppliesTo: "category", TargetIDs: []string{"cat-bebidas"}},
	{ID: "promo-pizza", Name: "$50 de descuento en pizza", Type: "promotion", IsActive: true, PromoType: "fixed_amount", PromoValue: "50", AppliesTo: "product", TargetIDs: []string{"prod-pizza"}},
	{ID: "promo-total", Name: "10% en tu pedido", Type: "promotion", IsActive: true, PromoType: "percentage", PromoValue: "10", AppliesTo: "total_order"},
	{ID: "promo-inactive", Name: "Promoción vencida", Type: "promotion", IsActive: false, PromoType: "percentage", PromoValue: "50", AppliesTo: "total_order"},
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(obs.LogConfig{Format: "console", Level: "info"})

	migrate := flag.Bool("migrate", true, "apply migrations before seeding")
	tokenFor := flag.String("token", "", "print a development bearer token for this user id")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if *migrate {
		if err := db.Migrate(dbURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, dbURL, "backend-pedidos-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := seed(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Int("products", len(products)).Int("promotions", len(promotions)).Msg("seeding completed")

	if *tokenFor != "" {
		token, err := devToken(*tokenFor)
		if err != nil {
			logger.Fatal().Err(err).Msg("issue token")
		}
		fmt.Println(token)
	}
}

func seed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, p := range products {
			extras, err := json.Marshal(p.Extras)
			if err != nil {
				return err
			}
			if p.Extras == nil {
				extras = []byte("[]")
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO products (id, name, price, is_taxable, category_id, extras)
VALUES ($1, $2, $3::numeric, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
    is_taxable = EXCLUDED.is_taxable, category_id = EXCLUDED.category_id,
    extras = EXCLUDED.extras, updated_at = now()`,
				p.ID, p.Name, p.Price, p.IsTaxable, p.CategoryID, extras); err != nil {
				return fmt.Errorf("product %s: %w", p.ID, err)
			}
			logger.Info().Str("id", p.ID).Msg("product seeded")
		}
		// created_at is staggered so promotion order is deterministic.
		base := time.Now().Add(-time.Hour)
		for i, p := range promotions {
			items, err := json.Marshal(p.Items)
			if err != nil {
				return err
			}
			if p.Items == nil {
				items = []byte("[]")
			}
			if p.TargetIDs == nil {
				p.TargetIDs = []string{}
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO promotions (id, name, type, is_active, promo_type, promo_value, applies_to,
                        target_ids, package_price, package_items, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, '')::numeric, NULLIF($7, ''),
        $8, NULLIF($9, '')::numeric, $10, $11)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type,
    is_active = EXCLUDED.is_active, deleted_at = NULL, promo_type = EXCLUDED.promo_type,
    promo_value = EXCLUDED.promo_value, applies_to = EXCLUDED.applies_to,
    target_ids = EXCLUDED.target_ids, package_price = EXCLUDED.package_price,
    package_items = EXCLUDED.package_items, created_at = EXCLUDED.created_at, updated_at = now()`,
				p.ID, p.Name, p.Type, p.IsActive, p.PromoType, p.PromoValue, p.AppliesTo,
				p.TargetIDs, p.Price, items, base.Add(time.Duration(i)*time.Second)); err != nil {
				return fmt.Errorf("promotion %s: %w", p.ID, err)
			}
			logger.Info().Str("id", p.ID).Str("type", p.Type).Msg("promotion seeded")
		}
		return nil
	})
}

func devToken(userID string) (string, error) {
	v, err := auth.NewVerifier(auth.Config{
		Secret:   os.Getenv("JWT_SECRET"),
		Issuer:   envOrDefault("JWT_ISSUER", "backend-pedidos"),
		Audience: envOrDefault("JWT_AUDIENCE", "pedidos-frontend"),
	})
	if err != nil {
		return "", err
	}
	return v.Issue(userID, 24*time.Hour, false)
}

func envOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
