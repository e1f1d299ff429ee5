package main

import (
	"context"
	"fmt"
	"time"

	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/database"
	"github.com/unsikalab/tesonline-backend/internal/logger"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

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

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}

	// One shared seed password keeps the fixture predictable in dev.
	hash, err := bcrypt.GenerateFromPassword([]byte("tesonline"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	successCount := 0
	for i, name := range names {
		participant := &model.Participant{
			Name:         name,
			Username:     fmt.Sprintf("peserta%02d", i+1),
			PasswordHash: string(hash),
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

	fmt.Printf("\nSeed completed! Successfully added %d/%d participants.\n", successCount, len(names))
}
