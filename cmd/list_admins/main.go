package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/repository"
)

// Lists admins and superadmins
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

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tID\tEMAIL\tNAME\tLAST LOGIN")
	total := 0
	for _, role := range []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin} {
		list, err := store.Users.List(ctx, domain.PrincipalFilter{Role: role})
		if err != nil {
			log.Fatalf("Failed to list %s: %v", role, err)
		}
		for _, p := range list {
			lastLogin := "never"
			if p.LastLoginAt != nil {
				lastLogin = p.LastLoginAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Role, p.ID, p.Email, p.DisplayName, lastLogin)
			total++
		}
	}
	w.Flush()
	fmt.Printf("\n%d admin account(s)\n", total)
}
