package repositories

import (
	"context"

	"github.com/pairmesh/backend/internal/models"
)

// UserRepository defines data access for user accounts. FindByID doubles as
// the user directory consumed by the relationship service for existence
// checks and view population.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}
