package driven

// SecretVault seals and opens host access secrets. Implementations hold a
// single key for the lifetime of the process.
type SecretVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
