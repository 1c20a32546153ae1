package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/mentorlink/internal/config"
	"github.com/mansoorceksport/mentorlink/internal/domain"
	"github.com/mansoorceksport/mentorlink/internal/logger"
	"github.com/mansoorceksport/mentorlink/internal/repository"
)

type violation struct {
	bookingID string
	status    domain.BookingStatus
	problem   string
}

// Reports bookings whose mentor or assignment rows disagree with their status.
// Read only; exits 1 when anything is found.
func main() {
	verbose := flag.Bool("v", false, "Print every booking checked")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := repository.Open(ctx, cfg, logger.New(cfg.Env))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close(context.Background())

	bookings, err := store.Bookings.ListAll(ctx)
	if err != nil {
		log.Fatalf("Failed to list bookings: %v", err)
	}
	fmt.Printf("🔍 Auditing %d booking(s)\n", len(bookings))

	var found []violation
	for _, b := range bookings {
		if *verbose {
			fmt.Printf("   %s %s mentor=%q\n", b.ID, b.Status, b.MentorIDValue())
		}
		assignments, err := store.Assignments.ListByBooking(ctx, b.ID)
		if err != nil {
			log.Fatalf("Failed to list assignments for %s: %v", b.ID, err)
		}
		for _, problem := range audit(b, assignments) {
			found = append(found, violation{bookingID: b.ID, status: b.Status, problem: problem})
		}
	}

	if len(found) == 0 {
		fmt.Println("✅ No violations")
		return
	}
	for _, v := range found {
		fmt.Printf("❌ %s (%s): %s\n", v.bookingID, v.status, v.problem)
	}
	fmt.Printf("\n%d violation(s)\n", len(found))
	os.Exit(1)
}

// audit checks one booking against its assignment history
func audit(b *domain.Booking, assignments []*domain.Assignment) []string {
	var problems []string
	if !b.ConsistentMentor() {
		if b.HasMentor() {
			problems = append(problems, "mentor_id set in a status without a mentor")
		} else {
			problems = append(problems, "mentor_id missing")
		}
	}

	var pending []*domain.Assignment
	for _, a := range assignments {
		if a.IsPending() {
			pending = append(pending, a)
		}
	}
	if len(pending) > 1 {
		problems = append(problems, fmt.Sprintf("%d pending assignments", len(pending)))
	}

	switch b.Status {
	case domain.BookingAssignedPendingMentor:
		if len(pending) == 0 {
			problems = append(problems, "no pending assignment")
		} else if pending[0].MentorID != b.MentorIDValue() {
			problems = append(problems, "pending assignment names mentor "+pending[0].MentorID)
		}
	case domain.BookingApproved, domain.BookingRejected, domain.BookingCompleted:
		if len(assignments) == 0 {
			problems = append(problems, "no assignment history")
			break
		}
		last := assignments[len(assignments)-1]
		if last.MentorID != b.MentorIDValue() {
			problems = append(problems, "latest assignment names mentor "+last.MentorID)
		}
	}
	return problems
}
