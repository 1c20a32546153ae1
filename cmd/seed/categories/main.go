package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/repository"
)

var categories = []struct {
	Name        string
	Description string
}{
	{"Career Growth", "Promotions, career switches and long term planning"},
	{"Product Management", "Discovery, roadmaps and stakeholder management"},
	{"Software Engineering", "Architecture, code review and engineering practices"},
	{"Data and Analytics", "Analytics, data engineering and machine learning"},
	{"Design", "Product design, UX research and design systems"},
	{"Entrepreneurship", "Starting up, fundraising and early go-to-market"},
	{"Marketing", "Brand, growth and performance marketing"},
	{"Leadership", "Managing teams, hiring and feedback"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, cfg, logger.New(cfg.Env))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close(context.Background())

	created, skipped := 0, 0
	for _, c := range categories {
		err := store.Categories.Create(ctx, &domain.ExpertiseCategory{
			ID:          domain.NewID(),
			Name:        c.Name,
			Description: c.Description,
			CreatedAt:   time.Now().UTC(),
		})
		switch {
		case errors.Is(err, domain.ErrDuplicateCategory):
			fmt.Printf("⏭️  %s already exists\n", c.Name)
			skipped++
		case err != nil:
			log.Fatalf("Failed to create %s: %v", c.Name, err)
		default:
			fmt.Printf("✅ Created %s\n", c.Name)
			created++
		}
	}

	fmt.Printf("\nDone: %d created, %d skipped\n", created, skipped)
}
