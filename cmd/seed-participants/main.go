package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opencbt/opencbt-backend/internal/config"
	"github.com/opencbt/opencbt-backend/internal/database"
	"github.com/opencbt/opencbt-backend/internal/logger"
	"github.com/opencbt/opencbt-backend/internal/model"
	"github.com/opencbt/opencbt-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Seeds one section with 50 participant accounts for load and integration
// testing. Every account gets the same password: "opencbt-test".
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	participantRepo := repository.NewParticipantRepository(pool)

	fmt.Println("=== Seeding 50 Participants ===")

	sectionName := "Section A"

	var sectionID int
	err = pool.QueryRow(ctx, "SELECT id FROM sections WHERE name = $1", sectionName).Scan(&sectionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			fmt.Printf("Section %q not found. Creating it...\n", sectionName)
			err = pool.QueryRow(ctx,
				"INSERT INTO sections (name) VALUES ($1) RETURNING id", sectionName,
			).Scan(&sectionID)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create section")
			}
			fmt.Printf("Created section with ID: %d\n", sectionID)
		} else {
			log.Fatal().Err(err).Msg("Failed to check existing section")
		}
	} else {
		fmt.Printf("Found existing section with ID: %d\n", sectionID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("opencbt-test"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	names := []string{
		"Alice Carter", "Ben Howard", "Clara Jensen", "Daniel Reyes", "Emma Walsh",
		"Felix Nguyen", "Grace Kim", "Henry Okafor", "Isla Moreau", "Jack Thompson",
		"Kira Tanaka", "Liam O'Brien", "Mia Fernandez", "Noah Petrov", "Olivia Sanders",
		"Pablo Herrera", "Quinn Delaney", "Ruby Ashton", "Sam Whitfield", "Tara Lindqvist",
		"Umar Farooq", "Vera Kowalski", "Will Barnes", "Xiomara Vega", "Yusuf Demir",
		"Zoe Fletcher", "Aaron Blake", "Bella Norwood", "Caleb Stein", "Dina Rahimi",
		"Eli Vance", "Freya Dahl", "Gus Moretti", "Hana Sato", "Ivan Sokolov",
		"Jade Leclerc", "Kofi Mensah", "Lena Bauer", "Marco Silva", "Nina Petersen",
		"Omar Haddad", "Priya Nair", "Rory Gallagher", "Sofia Rossi", "Theo Andersson",
		"Uma Krishnan", "Victor Lam", "Wendy Zhao", "Xavier Dupont", "Yara Aziz",
	}

	successCount := 0
	for i, name := range names {
		participant := &model.Participant{
			Username:     fmt.Sprintf("user%d", i+1),
			Name:         name,
			PasswordHash: string(hash),
			SectionID:    sectionID,
		}

		if err := participantRepo.Create(ctx, participant); err != nil {
			fmt.Printf("Error creating participant %s (%s): %v\n", participant.Name, participant.Username, err)
		} else {
			successCount++
			if (i+1)%10 == 0 {
				fmt.Printf("Created %d participants...\n", i+1)
			}
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/50 participants.\n", successCount)
}
