package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// ErrInvalidHost is returned when registration input fails validation.
var ErrInvalidHost = errors.New("invalid host")

var hostnamePattern = regexp.MustCompile(`^(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)(?:\.(?i:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?))*$`)

// RegistryService owns host registration and ownership checks.
type RegistryService struct {
	hosts driven.HostStore
	vault driven.SecretVault
	now   func() time.Time
}

// NewRegistryService creates a RegistryService.
func NewRegistryService(hosts driven.HostStore, vault driven.SecretVault) *RegistryService {
	return &RegistryService{hosts: hosts, vault: vault, now: time.Now}
}

// HostRegistration is the input for RegisterHost. Password is plaintext and
// is sealed by the vault before it reaches storage.
type HostRegistration struct {
	Address     string
	Username    string
	Password    string
	Description string
}

// RegisterHost validates and stores a new host owned by ownerID. The address
// is stored in canonical form, so spellings of the same host collide and
// return driven.ErrDuplicateHost.
func (s *RegistryService) RegisterHost(ctx context.Context, ownerID int64, reg HostRegistration) (model.Host, error) {
	reg.Address = strings.TrimSpace(reg.Address)
	reg.Username = strings.TrimSpace(reg.Username)

	addr, err := normalizeAddress(reg.Address)
	if err != nil {
		return model.Host{}, err
	}
	reg.Address = addr
	if reg.Username == "" {
		return model.Host{}, fmt.Errorf("%w: username is required", ErrInvalidHost)
	}
	if reg.Password == "" {
		return model.Host{}, fmt.Errorf("%w: password is required", ErrInvalidHost)
	}

	sealed, err := s.vault.Encrypt(reg.Password)
	if err != nil {
		return model.Host{}, fmt.Errorf("seal password for %s: %w", reg.Address, err)
	}

	host, err := s.hosts.Add(ctx, model.Host{
		Address:         reg.Address,
		Username:        reg.Username,
		EncryptedSecret: sealed,
		Description:     reg.Description,
		OwnerID:         ownerID,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return model.Host{}, err
	}

	return host, nil
}

// ResolveHost returns the host if it exists and belongs to ownerID.
// Returns driven.ErrHostNotFound or driven.ErrHostForbidden otherwise.
func (s *RegistryService) ResolveHost(ctx context.Context, hostID, ownerID int64) (model.Host, error) {
	host, err := s.hosts.GetByID(ctx, hostID)
	if err != nil {
		return model.Host{}, err
	}
	if host == nil {
		return model.Host{}, fmt.Errorf("host %d: %w", hostID, driven.ErrHostNotFound)
	}
	if !host.OwnedBy(ownerID) {
		return model.Host{}, fmt.Errorf("host %d: %w", hostID, driven.ErrHostForbidden)
	}
	return *host, nil
}

// ListHosts returns the hosts owned by ownerID.
func (s *RegistryService) ListHosts(ctx context.Context, ownerID int64) ([]model.Host, error) {
	return s.hosts.ListByOwner(ctx, ownerID)
}

// RemoveHost deletes a host the caller owns, along with its inventory.
func (s *RegistryService) RemoveHost(ctx context.Context, hostID, ownerID int64) error {
	if _, err := s.ResolveHost(ctx, hostID, ownerID); err != nil {
		return err
	}
	return s.hosts.Remove(ctx, hostID)
}

// normalizeAddress accepts an IP address or an RFC 1123 hostname and returns
// its canonical form: the shortest IP spelling, or the lowercased hostname.
func normalizeAddress(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("%w: address is required", ErrInvalidHost)
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String(), nil
	}
	if len(addr) > 253 || !hostnamePattern.MatchString(addr) {
		return "", fmt.Errorf("%w: %q is neither an IP address nor a hostname", ErrInvalidHost, addr)
	}
	return strings.ToLower(addr), nil
}
