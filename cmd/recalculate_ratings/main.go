package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/repository"
	"github.com/mansoorceksport/mentorlink/internal/service"
)

// Rebuilds mentor rating aggregates from the review rows
func main() {
	dryRun := flag.Bool("dry-run", false, "Show what would be done without making changes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zl := logger.New(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close(context.Background())

	reviews := service.NewReviewService(store.Bookings, store.Reviews, store.Mentors, store.Tx, nil, zl)
	aggregates, err := reviews.RecalculateRatings(ctx, *dryRun)
	if err != nil {
		log.Fatalf("Failed to recalculate ratings: %v", err)
	}

	ids := make([]string, 0, len(aggregates))
	for id := range aggregates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		agg := aggregates[id]
		avg := 0.0
		if agg.Count > 0 {
			avg = float64(agg.Total) / float64(agg.Count)
		}
		fmt.Printf("📊 %s: %d review(s), average %.2f\n", id, agg.Count, avg)
	}

	if *dryRun {
		fmt.Printf("\n🔍 Dry run: %d mentor(s) would be updated\n", len(ids))
		return
	}
	fmt.Printf("\n✅ Updated %d mentor(s)\n", len(ids))
}
