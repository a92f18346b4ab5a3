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

func TestRegisterHost_SealsPassword(t *testing.T) {
	hosts := newMockHostStore()
	svc := application.NewRegistryService(hosts, fakeVault{})

	host, err := svc.RegisterHost(context.Background(), 7, application.HostRegistration{
		Address:     " 10.0.0.5 ",
		Username:    "Administrator",
		Password:    "hunter2",
		Description: "build agent",
	})
	require.NoError(t, err)

	assert.NotZero(t, host.ID)
	assert.Equal(t, "10.0.0.5", host.Address)
	assert.Equal(t, int64(7), host.OwnerID)
	assert.Equal(t, "build agent", host.Description)
	assert.False(t, host.CreatedAt.IsZero())

	require.Len(t, hosts.added, 1)
	assert.NotContains(t, hosts.added[0].EncryptedSecret, "hunter2")
	plain, err := fakeVault{}.Decrypt(hosts.added[0].EncryptedSecret)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestRegisterHost_Duplicate(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		address  string
	}{
		{"same spelling", "srv01", "srv01"},
		{"hostname case", "winbox01.corp.local", "WinBox01.corp.local"},
		{"ipv6 spelling", "fe80::1", "fe80:0:0::1"},
		{"ipv6 leading zeros", "2001:db8::1", "2001:0db8:0000::0001"},
		{"ipv4-mapped ipv6", "10.0.0.5", "::ffff:10.0.0.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hosts := newMockHostStore(model.Host{ID: 1, Address: tc.existing, OwnerID: 7})
			svc := application.NewRegistryService(hosts, fakeVault{})

			_, err := svc.RegisterHost(context.Background(), 8, application.HostRegistration{
				Address: tc.address, Username: "u", Password: "p",
			})
			assert.ErrorIs(t, err, driven.ErrDuplicateHost)
			assert.Empty(t, hosts.added)
		})
	}
}

func TestRegisterHost_StoresCanonicalAddress(t *testing.T) {
	tests := map[string]string{
		"WinBox01.Corp.Local": "winbox01.corp.local",
		"FE80:0:0::1":         "fe80::1",
		" 10.0.0.5 ":          "10.0.0.5",
		"::ffff:192.168.1.10": "192.168.1.10",
	}

	for input, want := range tests {
		hosts := newMockHostStore()
		svc := application.NewRegistryService(hosts, fakeVault{})

		host, err := svc.RegisterHost(context.Background(), 1, application.HostRegistration{
			Address: input, Username: "u", Password: "p",
		})
		require.NoError(t, err, input)
		assert.Equal(t, want, host.Address, input)
	}
}

func TestRegisterHost_Validation(t *testing.T) {
	tests := []struct {
		name string
		reg  application.HostRegistration
	}{
		{"empty address", application.HostRegistration{Username: "u", Password: "p"}},
		{"bad hostname", application.HostRegistration{Address: "not a host!", Username: "u", Password: "p"}},
		{"leading hyphen", application.HostRegistration{Address: "-srv", Username: "u", Password: "p"}},
		{"missing username", application.HostRegistration{Address: "srv01", Password: "p"}},
		{"missing password", application.HostRegistration{Address: "srv01", Username: "u"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hosts := newMockHostStore()
			svc := application.NewRegistryService(hosts, fakeVault{})

			_, err := svc.RegisterHost(context.Background(), 1, tc.reg)
			assert.ErrorIs(t, err, application.ErrInvalidHost)
			assert.Empty(t, hosts.added)
		})
	}
}

func TestRegisterHost_AcceptsHostnamesAndIPs(t *testing.T) {
	for _, addr := range []string{"srv01", "SRV-01.corp.example.com", "192.168.1.20", "fe80::1"} {
		t.Run(addr, func(t *testing.T) {
			svc := application.NewRegistryService(newMockHostStore(), fakeVault{})
			_, err := svc.RegisterHost(context.Background(), 1, application.HostRegistration{
				Address: addr, Username: "u", Password: "p",
			})
			assert.NoError(t, err)
		})
	}
}

func TestRegisterHost_StoreError(t *testing.T) {
	hosts := newMockHostStore()
	hosts.addErr = errors.New("db locked")
	svc := application.NewRegistryService(hosts, fakeVault{})

	_, err := svc.RegisterHost(context.Background(), 1, application.HostRegistration{
		Address: "srv01", Username: "u", Password: "p",
	})
	assert.ErrorContains(t, err, "db locked")
}

func TestResolveHost(t *testing.T) {
	hosts := newMockHostStore(model.Host{ID: 1, Address: "srv01", OwnerID: 7})
	svc := application.NewRegistryService(hosts, fakeVault{})

	t.Run("owner", func(t *testing.T) {
		host, err := svc.ResolveHost(context.Background(), 1, 7)
		require.NoError(t, err)
		assert.Equal(t, "srv01", host.Address)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.ResolveHost(context.Background(), 99, 7)
		assert.ErrorIs(t, err, driven.ErrHostNotFound)
	})

	t.Run("other owner", func(t *testing.T) {
		_, err := svc.ResolveHost(context.Background(), 1, 8)
		assert.ErrorIs(t, err, driven.ErrHostForbidden)
	})
}

func TestListHosts_OnlyCallersHosts(t *testing.T) {
	hosts := newMockHostStore(
		model.Host{ID: 1, Address: "srv02", OwnerID: 7},
		model.Host{ID: 2, Address: "srv01", OwnerID: 7},
		model.Host{ID: 3, Address: "other", OwnerID: 8},
	)
	svc := application.NewRegistryService(hosts, fakeVault{})

	got, err := svc.ListHosts(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "srv01", got[0].Address)
	assert.Equal(t, "srv02", got[1].Address)
}

func TestRemoveHost(t *testing.T) {
	hosts := newMockHostStore(model.Host{ID: 1, Address: "srv01", OwnerID: 7})
	svc := application.NewRegistryService(hosts, fakeVault{})

	err := svc.RemoveHost(context.Background(), 1, 8)
	assert.ErrorIs(t, err, driven.ErrHostForbidden)
	assert.Len(t, hosts.hosts, 1)

	require.NoError(t, svc.RemoveHost(context.Background(), 1, 7))
	assert.Empty(t, hosts.hosts)

	err = svc.RemoveHost(context.Background(), 1, 7)
	assert.ErrorIs(t, err, driven.ErrHostNotFound)
}
