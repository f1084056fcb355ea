package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/banklend/pkg/models"
	"go.uber.org/zap"
)

var sampleCustomerNames = []string{"Alice Smith", "Bob Johnson"}

// SeedSampleCustomers adds a couple of demo customers to an empty database so
// the service can issue loans right after first boot. It is a no-op once any
// customer exists.
func SeedSampleCustomers(ctx context.Context, s Storage, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	existing, err := s.GetAllCustomers(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing customers: %w", err)
	}
	if len(existing) > 0 {
		log.Info("customers already exist, skipping sample data", zap.Int("customers", len(existing)))
		return nil
	}

	for _, name := range sampleCustomerNames {
		c := &models.Customer{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
		if err := s.CreateCustomer(ctx, c); err != nil {
			return fmt.Errorf("failed to seed customer %q: %w", name, err)
		}
		log.Info("seeded sample customer", zap.String("customer_id", c.ID), zap.String("name", c.Name))
	}
	return nil
}
