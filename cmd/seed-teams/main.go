package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/findit-id/cbt-backend/internal/database"
	"github.com/findit-id/cbt-backend/internal/logger"
	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/repository"
	"github.com/findit-id/cbt-backend/internal/service"
)

// seedPassword is shared by every seeded member account. Development only.
const seedPassword = "cbt-demo-pass"

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

	teamRepo := repository.NewTeamRepository(pool)

	teamNames := []string{
		"Alpha", "Bravo", "Charlie", "Delta", "Echo",
		"Foxtrot", "Golf", "Hotel", "India", "Juliett",
	}
	memberNames := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama",
	}

	fmt.Printf("=== Seeding %d Teams ===\n", len(teamNames))

	for _, name := range teamNames {
		teamID := strings.ToLower(name)
		team := &model.Team{ID: teamID, Name: "Team " + name}
		if err := teamRepo.Create(ctx, team); err != nil {
			log.Fatal().Err(err).Str("team_id", teamID).Msg("Failed to create team")
		}

		for i, memberName := range memberNames {
			salt, err := randomSalt()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to generate salt")
			}
			hashed := service.HashMemberPassword(seedPassword, salt)

			member := &model.Member{
				TeamID:         teamID,
				Email:          fmt.Sprintf("%s.member%d@cbt.local", teamID, i+1),
				DisplayName:    memberName,
				HashedPassword: &hashed,
				Salt:           &salt,
			}
			if err := teamRepo.CreateMember(ctx, member); err != nil {
				log.Fatal().Err(err).Str("email", member.Email).Msg("Failed to create member")
			}
		}

		fmt.Printf("Created team %q with %d members\n", teamID, len(memberNames))
	}

	fmt.Printf("\nDone. Every member logs in with password %q\n", seedPassword)
}

func randomSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
