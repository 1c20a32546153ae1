package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/repository"
)

// Bootstraps the first superadmin by email. The Firebase uid is linked on first login.
func main() {
	email := flag.String("email", "", "Email of the superadmin (required)")
	name := flag.String("name", "", "Display name for a new principal")
	flag.Parse()

	if *email == "" {
		fmt.Println("Usage: superadmin -email <EMAIL> [-name <NAME>]")
		fmt.Println("\nCreates a superadmin, or promotes an existing principal with that email.")
		os.Exit(1)
	}
	addr := strings.ToLower(strings.TrimSpace(*email))

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

	existing, err := store.Users.GetByEmail(ctx, addr)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		displayName := *name
		if displayName == "" {
			displayName = addr
		}
		p := &domain.Principal{
			ID:             domain.NewID(),
			Email:          addr,
			DisplayName:    displayName,
			Role:           domain.RoleSuperAdmin,
			ApprovalStatus: domain.ApprovalApproved,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.Users.Create(ctx, p); err != nil {
			log.Fatalf("Failed to create superadmin: %v", err)
		}
		fmt.Printf("✅ Created superadmin %s (%s)\n", addr, p.ID)
		return
	case err != nil:
		log.Fatalf("Failed to look up %s: %v", addr, err)
	}

	if existing.Role != domain.RoleSuperAdmin {
		if err := store.Users.SetRole(ctx, existing.ID, existing.Role, domain.RoleSuperAdmin); err != nil {
			log.Fatalf("Failed to promote %s: %v", addr, err)
		}
		fmt.Printf("⬆️  Promoted %s from %s to superadmin\n", addr, existing.Role)
	}
	if existing.ApprovalStatus != domain.ApprovalApproved {
		if err := store.Users.SetApproval(ctx, existing.ID, existing.ApprovalStatus, domain.ApprovalApproved); err != nil {
			log.Fatalf("Failed to approve %s: %v", addr, err)
		}
		fmt.Printf("✅ Approved %s\n", addr)
	}
	fmt.Printf("Superadmin ready: %s (%s)\n", addr, existing.ID)
}
