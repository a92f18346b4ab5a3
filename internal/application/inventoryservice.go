package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// InventoryService runs remote service operations for a caller-owned host:
// resolve the host, open its secret, open a session, execute, and for list
// operations reconcile the result into the persisted inventory.
type InventoryService struct {
	registry   *RegistryService
	vault      driven.SecretVault
	opener     driven.SessionOpener
	reconciler *Reconciler
	services   driven.ServiceStore
	logger     *slog.Logger
}

// NewInventoryService creates an InventoryService with all required dependencies.
func NewInventoryService(
	registry *RegistryService,
	vault driven.SecretVault,
	opener driven.SessionOpener,
	reconciler *Reconciler,
	services driven.ServiceStore,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		registry:   registry,
		vault:      vault,
		opener:     opener,
		reconciler: reconciler,
		services:   services,
		logger:     logger,
	}
}

// RefreshServices lists the host's services remotely and reconciles them into
// the inventory. It returns the reconciled rows in the order the host reported them.
func (s *InventoryService) RefreshServices(ctx context.Context, hostID, ownerID int64) ([]model.Service, error) {
	start := time.Now()

	var observed []model.ObservedService
	host, err := s.withSession(ctx, hostID, ownerID, func(sess driven.Session) error {
		var err error
		observed, err = sess.ListServices(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	services, err := s.reconciler.Reconcile(ctx, host.ID, observed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory reconciled",
		"host", host.Address,
		"host_id", host.ID,
		"observed", len(observed),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return services, nil
}

// CachedServices returns the persisted inventory without contacting the host.
func (s *InventoryService) CachedServices(ctx context.Context, hostID, ownerID int64) ([]model.Service, error) {
	host, err := s.registry.ResolveHost(ctx, hostID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.services.ListByHost(ctx, host.ID)
}

// StartService starts a named service on the host. The inventory is not
// touched; the next refresh picks up the new status.
func (s *InventoryService) StartService(ctx context.Context, hostID, ownerID int64, name string) (string, error) {
	return s.control(ctx, hostID, ownerID, name, driven.Session.StartService)
}

// StopService stops a named service on the host. The inventory is not touched.
func (s *InventoryService) StopService(ctx context.Context, hostID, ownerID int64, name string) (string, error) {
	return s.control(ctx, hostID, ownerID, name, driven.Session.StopService)
}

func (s *InventoryService) control(
	ctx context.Context,
	hostID, ownerID int64,
	name string,
	op func(driven.Session, context.Context, string) (string, error),
) (string, error) {
	if err := driven.ValidateServiceName(name); err != nil {
		return "", err
	}

	var msg string
	host, err := s.withSession(ctx, hostID, ownerID, func(sess driven.Session) error {
		var err error
		msg, err = op(sess, ctx, name)
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(msg, "host", host.Address, "host_id", host.ID)
	return msg, nil
}

// withSession resolves the host, opens its secret, and runs fn inside a
// session that is always closed before returning.
func (s *InventoryService) withSession(ctx context.Context, hostID, ownerID int64, fn func(driven.Session) error) (model.Host, error) {
	host, err := s.registry.ResolveHost(ctx, hostID, ownerID)
	if err != nil {
		return model.Host{}, err
	}

	password, err := s.vault.Decrypt(host.EncryptedSecret)
	if err != nil {
		return model.Host{}, fmt.Errorf("open secret for host %d: %w", host.ID, err)
	}

	sess, err := s.opener.Open(ctx, model.RemoteTarget{
		HostID:   host.ID,
		Address:  host.Address,
		Username: host.Username,
		Password: password,
	})
	if err != nil {
		return model.Host{}, err
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			s.logger.Warn("closing remote session", "host", host.Address, "error", closeErr)
		}
	}()

	if err := fn(sess); err != nil {
		return model.Host{}, err
	}
	return host, nil
}
