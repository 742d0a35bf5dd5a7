package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/brick-inventory/internal/adapter/storage"
	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/core/service"
)

const (
	assemblyID = "stress-assembly"
	queueSize  = 1000
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	users := flag.Int("users", 200, "distinct viewers")
	repeats := flag.Int("repeats", 3, "views per viewer")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.ZRem(ctx, "assemblies:views", assemblyID)
	keys, _ := rdb.Keys(ctx, "view:stress-user-*:"+assemblyID).Result()
	if len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}

	redisAdapter := storage.NewRedisAdapter(rdb)
	catalog := storage.NewMemoryAdapter()
	catalog.PutSummary(domain.Summary{AssemblyID: assemblyID, Name: "Stress Set", PieceCount: 1})

	viewService := service.NewViewService(redisAdapter, catalog, logger, queueSize, time.Minute)

	// Persist views in background
	var workers sync.WaitGroup
	for i := 0; i < 4; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			viewService.ProcessViews(id, catalog)
		}(i)
	}

	var counted, duplicate, failed atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *users; i++ {
		for j := 0; j < *repeats; j++ {
			wg.Add(1)
			go func(userID int) {
				defer wg.Done()

				err := viewService.RecordView(ctx, fmt.Sprintf("stress-user-%d", userID), assemblyID)
				switch {
				case err == nil:
					counted.Add(1)
				case errors.Is(err, service.ErrDuplicateView):
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
			}(i)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	viewService.Close()
	workers.Wait()

	total := *users * *repeats
	views, err := redisAdapter.Views(ctx, assemblyID)
	if err != nil {
		logger.Fatal("failed to read views", zap.Error(err))
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Viewers:          %d\n", *users)
	fmt.Printf("Total Requests:   %d\n", total)
	fmt.Printf("Counted:          %d\n", counted.Load())
	fmt.Printf("Duplicates:       %d\n", duplicate.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Persisted:        %d\n", len(catalog.Views()))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if counted.Load() == int32(*users) && duplicate.Load() == int32(total-*users) {
		fmt.Printf("PASS: exactly one view counted per viewer\n")
	} else {
		fmt.Printf("FAIL: expected %d counted/%d duplicate, got %d/%d\n",
			*users, total-*users, counted.Load(), duplicate.Load())
	}

	if views == int64(*users) && len(catalog.Views()) == *users {
		fmt.Println("PASS: counter and view log agree")
	} else {
		fmt.Printf("FAIL: counter %d, view log %d, expected %d\n", views, len(catalog.Views()), *users)
	}
}
