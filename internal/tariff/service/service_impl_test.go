package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/tariff/domain"
	"github.com/smallgrid/aquabill/internal/tariff/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTariffService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&domain.UnitPrice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRejectsNonPositivePrice(t *testing.T) {
	svc, _ := setupTariffService(t)
	ctx := context.Background()

	for _, p := range []string{"0", "-1.50"} {
		_, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price(p)})
		if !errors.Is(err, domain.ErrInvalidPrice) {
			t.Fatalf("price %s: err = %v, want ErrInvalidPrice", p, err)
		}
	}
}

func TestCurrentAtPicksLatestEffective(t *testing.T) {
	svc, _ := setupTariffService(t)
	ctx := context.Background()

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price("8"), EffectiveDate: jan}); err != nil {
		t.Fatalf("create jan: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price("10"), EffectiveDate: apr}); err != nil {
		t.Fatalf("create apr: %v", err)
	}

	got, err := svc.CurrentAt(ctx, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current at may: %v", err)
	}
	if !got.Price.Equal(price("10")) {
		t.Fatalf("may price = %s, want 10", got.Price)
	}

	got, err = svc.CurrentAt(ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("current at feb: %v", err)
	}
	if !got.Price.Equal(price("8")) {
		t.Fatalf("feb price = %s, want 8", got.Price)
	}
}

func TestCurrentAtSameEffectiveDateTieBreaksOnNewest(t *testing.T) {
	svc, _ := setupTariffService(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price("9"), EffectiveDate: day}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price("9.50"), EffectiveDate: day}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	got, err := svc.CurrentAt(ctx, day)
	if err != nil {
		t.Fatalf("current at: %v", err)
	}
	if !got.Price.Equal(price("9.50")) {
		t.Fatalf("price = %s, want 9.50", got.Price)
	}
}

func TestCurrentAtBeforeAnyTariff(t *testing.T) {
	svc, _ := setupTariffService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.CreateUnitPriceRequest{
		Price:         price("10"),
		EffectiveDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.CurrentAt(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domain.ErrNoTariff) {
		t.Fatalf("err = %v, want ErrNoTariff", err)
	}
}

func TestCreateDefaultsEffectiveDateToNow(t *testing.T) {
	svc, clk := setupTariffService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateUnitPriceRequest{Price: price("12")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.EffectiveDate.Equal(clk.Now()) {
		t.Fatalf("effective = %s, want %s", created.EffectiveDate, clk.Now())
	}
}
