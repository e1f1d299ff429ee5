package service

import (
	"context"

	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// UserService handles participant and admin account lookups.
type UserService struct {
	participantRepo *repository.ParticipantRepository
	adminRepo       *repository.AdminRepository
}

// NewUserService creates a new UserService.
func NewUserService(participantRepo *repository.ParticipantRepository, adminRepo *repository.AdminRepository) *UserService {
	return &UserService{participantRepo: participantRepo, adminRepo: adminRepo}
}

// GetParticipantByUsername looks a participant up for login.
func (s *UserService) GetParticipantByUsername(ctx context.Context, username string) (*model.Participant, error) {
	return s.participantRepo.GetByUsername(ctx, username)
}

// GetParticipantByID looks a participant up by id.
func (s *UserService) GetParticipantByID(ctx context.Context, id int) (*model.Participant, error) {
	return s.participantRepo.GetByID(ctx, id)
}

// GetAdminByEmail looks an admin up for login.
func (s *UserService) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.adminRepo.GetByEmail(ctx, email)
}

// GetAdminByID looks an admin up by id.
func (s *UserService) GetAdminByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.adminRepo.GetByID(ctx, id)
}

// CreateAdmin inserts an admin account with a pre-hashed password.
func (s *UserService) CreateAdmin(ctx context.Context, a *model.Admin) error {
	return s.adminRepo.Create(ctx, a)
}

// CreateParticipant inserts (or refreshes) a participant account.
func (s *UserService) CreateParticipant(ctx context.Context, p *model.Participant) error {
	return s.participantRepo.Create(ctx, p)
}
