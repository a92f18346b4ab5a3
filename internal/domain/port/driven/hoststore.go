package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
)

// Sentinel errors returned by HostStore implementations and the registry.
var (
	// ErrHostNotFound indicates the requested host does not exist.
	ErrHostNotFound = errors.New("host not found")

	// ErrHostForbidden indicates the host exists but belongs to another owner.
	ErrHostForbidden = errors.New("host belongs to another owner")

	// ErrDuplicateHost indicates a host with the same address is already registered.
	ErrDuplicateHost = errors.New("host already registered")
)

// HostStore defines the driven port for host persistence.
// Add returns ErrDuplicateHost if the address is already registered and
// writes nothing in that case. Remove returns ErrHostNotFound if the host
// does not exist; its services are removed with it.
type HostStore interface {
	Add(ctx context.Context, host model.Host) (model.Host, error)
	Remove(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Host, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Host, error)
}
