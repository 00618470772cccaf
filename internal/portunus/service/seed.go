package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/types"
)

// Enroller is the write side of the credential table.
type Enroller interface {
	Upsert(ctx context.Context, id types.CredentialID, code string) (int, error)
}

type SeedCredential struct {
	UID  string // hex
	Code string
}

// SeedCredentials enrolls fixed credentials, typically from
// PORTUNUS_SEED_CREDENTIALS in dev.  Re-seeding an existing credential
// overwrites its code, so it is safe on every boot.
func SeedCredentials(ctx context.Context, e Enroller, seeds []SeedCredential, logger logrus.FieldLogger) error {
	for _, s := range seeds {
		id, err := types.ParseCredentialID(s.UID)
		if err != nil {
			return fmt.Errorf("seed %q: %w", s.UID, err)
		}
		slot, err := e.Upsert(ctx, id, s.Code)
		if err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
		logger.WithFields(logrus.Fields{"credential": id.String(), "slot": slot}).Info("seeded credential")
	}
	return nil
}
