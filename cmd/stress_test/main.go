package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	defaultDSN    = "root:root@tcp(localhost:3306)/storefront?parseTime=true&loc=UTC"
	initialStock  = 20
	totalRequests = 50
)

// countingEmitter stands in for the task queue so only the purchase path is measured.
type countingEmitter struct {
	emitted atomic.Int32
}

func (e *countingEmitter) Emit(context.Context, domain.ConsumptionReceipt) {
	e.emitted.Add(1)
}

func main() {
	ctx := context.Background()
	logger := zap.NewNop()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = defaultDSN
	}

	// Initialize MySQL
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		fmt.Printf("failed to connect mysql: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(50)

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
		fmt.Printf("failed to migrate: %v\n", err)
		os.Exit(1)
	}

	// Seed a fresh store and item
	inventory := service.NewInventoryService(mysqlAdapter)
	store, err := inventory.CreateStore(ctx, fmt.Sprintf("Stress Store %d", time.Now().UnixNano()), "")
	if err != nil {
		fmt.Printf("failed to create store: %v\n", err)
		os.Exit(1)
	}
	item, err := inventory.CreateItem(ctx, service.CreateItemInput{
		Name:     "Stress Widget",
		Price:    decimal.RequireFromString("10.99"),
		StoreID:  store.ID,
		Quantity: initialStock,
	})
	if err != nil {
		fmt.Printf("failed to create item: %v\n", err)
		os.Exit(1)
	}

	emitter := &countingEmitter{}
	consumption := service.NewConsumptionService(mysqlAdapter, emitter, logger)

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var errorCount atomic.Int32

	// Spawn concurrent buyers
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			_, _, err := consumption.Consume(ctx, item.ID, userID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrItemSoldOut):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
				fmt.Printf("user %d: %v\n", userID, err)
			}
		}(int64(i + 1))
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Events Emitted:   %d\n", emitter.emitted.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d purchases succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	// Verify final stock in MySQL
	final, err := inventory.GetItem(ctx, item.ID)
	if err != nil {
		fmt.Printf("FAIL: could not reload item: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Final MySQL Stock: %d\n", final.Quantity)

	if final.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", final.Quantity)
	}
}
