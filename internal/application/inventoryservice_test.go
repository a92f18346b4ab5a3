package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/winsvcpanel/internal/application"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/model"
	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

type inventoryFixture struct {
	svc      *application.InventoryService
	store    *memServiceStore
	opener   *mockOpener
	session  *mockSession
	registry *application.RegistryService
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()

	sealed, err := fakeVault{}.Encrypt("s3cret")
	require.NoError(t, err)

	hosts := newMockHostStore(
		model.Host{ID: 1, Address: "srv01", Username: "admin", EncryptedSecret: sealed, OwnerID: 7},
		model.Host{ID: 2, Address: "srv02", Username: "admin", EncryptedSecret: "garbage", OwnerID: 7},
	)
	store := newMemServiceStore()
	session := &mockSession{}
	opener := &mockOpener{session: session}
	registry := application.NewRegistryService(hosts, fakeVault{})

	return &inventoryFixture{
		svc: application.NewInventoryService(
			registry, fakeVault{}, opener,
			application.NewReconciler(store), store, discardLogger,
		),
		store:    store,
		opener:   opener,
		session:  session,
		registry: registry,
	}
}

func TestRefreshServices_Reconciles(t *testing.T) {
	f := newInventoryFixture(t)
	existing := f.store.seed(1, "Spooler", "Stopped")
	f.session.services = observe("Spooler", "Running", "W32Time", "Running")

	got, err := f.svc.RefreshServices(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, existing.ID, got[0].ID)
	assert.Equal(t, "Running", got[0].Status)
	assert.Equal(t, "W32Time", got[1].Name)
	assert.Len(t, f.store.all(1), 2)

	require.Len(t, f.opener.targets, 1)
	target := f.opener.targets[0]
	assert.Equal(t, "srv01", target.Address)
	assert.Equal(t, "admin", target.Username)
	assert.Equal(t, "s3cret", target.Password)
	assert.True(t, f.session.closed)
}

func TestRefreshServices_OwnershipChecked(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := f.svc.RefreshServices(context.Background(), 1, 8)
	assert.ErrorIs(t, err, driven.ErrHostForbidden)

	_, err = f.svc.RefreshServices(context.Background(), 42, 7)
	assert.ErrorIs(t, err, driven.ErrHostNotFound)

	assert.Empty(t, f.opener.targets, "no remote call without a resolved host")
}

func TestRefreshServices_SecretUnreadable(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := f.svc.RefreshServices(context.Background(), 2, 7)
	require.Error(t, err)
	assert.ErrorContains(t, err, "open secret for host 2")
	assert.Empty(t, f.opener.targets)
}

func TestRefreshServices_ConnectionError(t *testing.T) {
	f := newInventoryFixture(t)
	f.opener.openErr = &driven.ConnectionError{Host: "srv01", Op: driven.OpConnect, Err: errors.New("401 unauthorized")}

	_, err := f.svc.RefreshServices(context.Background(), 1, 7)

	var connErr *driven.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "srv01", connErr.Host)
	assert.Equal(t, 0, f.store.applies)
}

func TestRefreshServices_ListFailureLeavesInventory(t *testing.T) {
	f := newInventoryFixture(t)
	existing := f.store.seed(1, "Spooler", "Stopped")
	f.session.listErr = &driven.RemoteExecutionError{Host: "srv01", Op: driven.OpList, ExitCode: 1, Diagnostic: "Access is denied"}

	_, err := f.svc.RefreshServices(context.Background(), 1, 7)

	var execErr *driven.RemoteExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "Access is denied", execErr.Diagnostic)
	assert.Equal(t, []model.Service{existing}, f.store.all(1))
	assert.True(t, f.session.closed, "session closed on failure")
}

func TestStartService(t *testing.T) {
	f := newInventoryFixture(t)
	existing := f.store.seed(1, "Spooler", "Stopped")

	msg, err := f.svc.StartService(context.Background(), 1, 7, "Spooler")
	require.NoError(t, err)

	assert.Equal(t, "Service 'Spooler' started successfully.", msg)
	assert.Equal(t, []string{"Spooler"}, f.session.started)
	assert.Equal(t, []model.Service{existing}, f.store.all(1), "control does not touch inventory")
	assert.True(t, f.session.closed)
}

func TestStopService(t *testing.T) {
	f := newInventoryFixture(t)

	msg, err := f.svc.StopService(context.Background(), 1, 7, "Spooler")
	require.NoError(t, err)

	assert.Equal(t, "Service 'Spooler' stopped successfully.", msg)
	assert.Equal(t, []string{"Spooler"}, f.session.stopped)
	assert.Empty(t, f.session.started)
}

func TestStartService_RemoteFailure(t *testing.T) {
	f := newInventoryFixture(t)
	existing := f.store.seed(1, "Spooler", "Stopped")
	f.session.startErr = &driven.RemoteExecutionError{
		Host:       "srv01",
		Op:         driven.OpStart,
		Service:    "Spooler",
		ExitCode:   1,
		Diagnostic: "Service 'Print Spooler (Spooler)' cannot be started due to the following error",
	}

	_, err := f.svc.StartService(context.Background(), 1, 7, "Spooler")

	var execErr *driven.RemoteExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "Spooler", execErr.Service)
	assert.Contains(t, err.Error(), "cannot be started")
	assert.Equal(t, []model.Service{existing}, f.store.all(1))
	assert.True(t, f.session.closed)
}

func TestStopService_Forbidden(t *testing.T) {
	f := newInventoryFixture(t)

	_, err := f.svc.StopService(context.Background(), 1, 8, "Spooler")
	assert.ErrorIs(t, err, driven.ErrHostForbidden)
	assert.Empty(t, f.opener.targets)
}

func TestServiceControl_InvalidNameSkipsHandshake(t *testing.T) {
	f := newInventoryFixture(t)

	for _, name := range []string{"*", "Spoo?er", "", "bad\nname"} {
		_, err := f.svc.StartService(context.Background(), 1, 7, name)
		assert.ErrorIs(t, err, driven.ErrInvalidServiceName, "%q", name)
		_, err = f.svc.StopService(context.Background(), 1, 7, name)
		assert.ErrorIs(t, err, driven.ErrInvalidServiceName, "%q", name)
	}

	assert.Empty(t, f.opener.targets, "no session opened for an invalid name")
	assert.Empty(t, f.session.started)
	assert.Empty(t, f.session.stopped)
}

func TestCachedServices(t *testing.T) {
	f := newInventoryFixture(t)
	a := f.store.seed(1, "A", "Running")
	f.store.seed(2, "B", "Running")

	got, err := f.svc.CachedServices(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, []model.Service{a}, got)
	assert.Empty(t, f.opener.targets, "cached read never goes remote")

	_, err = f.svc.CachedServices(context.Background(), 1, 8)
	assert.ErrorIs(t, err, driven.ErrHostForbidden)
}
