package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/internal/domain/entity"
	"github.com/oksasatya/healthcare-identity/internal/domain/repository"
	pginfra "github.com/oksasatya/healthcare-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
)

const seedPassword = "password123"

// demoAccounts has one verified account per role partition
func demoAccounts() []*entity.Account {
	return []*entity.Account{
		{Role: entity.RolePatient, Email: "patient@demo.local", Profile: entity.Profile{
			Patient: &entity.PatientProfile{FullName: "Demo Patient", BloodGroup: "O+"},
		}},
		{Role: entity.RoleClinic, Email: "clinic@demo.local", Profile: entity.Profile{
			Clinic: &entity.ClinicProfile{ClinicName: "Demo Clinic", ContactPerson: "Front Desk"},
		}},
		{Role: entity.RoleDoctor, Email: "doctor@demo.local", Profile: entity.Profile{
			Doctor: &entity.DoctorProfile{FullName: "Demo Doctor", Specialization: "General Practice"},
		}},
		{Role: entity.RolePharmacist, Email: "pharmacist@demo.local", Profile: entity.Profile{
			Pharmacist: &entity.PharmacistProfile{FullName: "Demo Pharmacist", PharmacyName: "Demo Pharmacy"},
		}},
	}
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	accounts := pginfra.NewAccountRepository(pool)

	hash, err := helpers.HashPassword(seedPassword)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}

	for _, a := range demoAccounts() {
		a.ID = uuid.NewString()
		a.PasswordHash = hash
		a.IsAccountVerified = true
		a.IsActive = true

		err := accounts.Create(ctx, a)
		fields := logrus.Fields{"role": a.Role, "email": a.Email}
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			helpers.LogInfo(logger, "already seeded", fields)
		case err != nil:
			logger.WithFields(fields).Fatalf("failed to seed account: %v", err)
		default:
			fields["id"] = a.ID
			fields["password"] = seedPassword
			helpers.LogInfo(logger, "seeded account", fields)
		}
	}
}
