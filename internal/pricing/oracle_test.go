package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"smart-wallet-engine/internal/domain"
	"smart-wallet-engine/internal/providers/stub"
)

func newTestOracle(market *stub.MarketData) *Oracle {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewOracle(market, NewMemoryCache(time.Minute), 1_000_000, 150, log)
}

func TestOracle_StablecoinPinned(t *testing.T) {
	market := stub.NewMarketData()
	market.Fail = true // must not be consulted
	oracle := newTestOracle(market)

	price, err := oracle.Price(context.Background(), "USDC", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if price != 1.0 {
		t.Errorf("stablecoin price = %v, want 1.0", price)
	}
}

func TestOracle_NativeFallback(t *testing.T) {
	market := stub.NewMarketData()
	market.Fail = true
	oracle := newTestOracle(market)

	price, err := oracle.Price(context.Background(), "SOL", "synthetic-sol")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if price != 150 {
		t.Errorf("native fallback price = %v, want 150", price)
	}
}

func TestOracle_NativeViaWrappedMint(t *testing.T) {
	market := stub.NewMarketData()
	market.ByContract[WrappedNativeMint] = &domain.MarketData{
		Contract: WrappedNativeMint,
		PriceUSD: 173.5,
	}
	oracle := newTestOracle(market)

	price, err := oracle.Price(context.Background(), "SOL", "synthetic-sol")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if price != 173.5 {
		t.Errorf("native price = %v, want 173.5", price)
	}
}

func TestOracle_CeilingClampedToZero(t *testing.T) {
	market := stub.NewMarketData()
	market.ByContract["Mint111"] = &domain.MarketData{
		Contract: "Mint111",
		PriceUSD: 5_000_000,
	}
	oracle := newTestOracle(market)

	price, err := oracle.Price(context.Background(), "GLITCH", "Mint111")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if price != 0 {
		t.Errorf("over-ceiling price = %v, want 0", price)
	}
}

func TestOracle_UnknownTokenZero(t *testing.T) {
	oracle := newTestOracle(stub.NewMarketData())

	price, err := oracle.Price(context.Background(), "NOPE", "MintUnknown")
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if price != 0 {
		t.Errorf("unknown token price = %v, want 0", price)
	}
}

func TestOracle_CacheHitSkipsProvider(t *testing.T) {
	market := stub.NewMarketData()
	market.ByContract["Mint222"] = &domain.MarketData{Contract: "Mint222", PriceUSD: 2.5}
	oracle := newTestOracle(market)

	ctx := context.Background()
	if _, err := oracle.Price(ctx, "TOK", "Mint222"); err != nil {
		t.Fatalf("Price() error = %v", err)
	}

	// Provider goes down; the cached quote must still serve.
	market.Fail = true
	price, err := oracle.Price(ctx, "TOK", "Mint222")
	if err != nil {
		t.Fatalf("Price() after cache error = %v", err)
	}
	if price != 2.5 {
		t.Errorf("cached price = %v, want 2.5", price)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "Mint333", 9.9)
	if _, ok := cache.Get(ctx, "Mint333"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get(ctx, "Mint333"); ok {
		t.Error("expected cache miss after expiry")
	}
}
