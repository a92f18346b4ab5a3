package model

// RemoteTarget carries everything needed to open a remote-management session
// against a host. Password is plaintext and lives only for the duration of a
// single request; it must never be logged or persisted.
type RemoteTarget struct {
	HostID   int64
	Address  string
	Username string
	Password string
}

// String renders the target without its password so it is safe for logs.
func (t RemoteTarget) String() string {
	return t.Username + "@" + t.Address
}
