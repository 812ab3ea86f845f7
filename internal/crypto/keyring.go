package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Keyring provides secure storage for the database encryption key
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
	IsAvailable() bool
}

const (
	ServiceName = "invoicer"
	KeyName     = "db-encryption-key"

	// EnvKey overrides the system keyring when set
	EnvKey = "INVOICER_DB_KEY"
)

// ErrKeyNotFound is returned when no key has been stored yet
var ErrKeyNotFound = errors.New("encryption key not found")

// NewKeyring returns the system keyring (Keychain, Secret Service or Windows
// Credential Manager) with the INVOICER_DB_KEY environment variable taking
// precedence.
func NewKeyring() Keyring {
	return &envKeyring{next: &systemKeyring{}}
}

type systemKeyring struct{}

// GetKey retrieves the encryption key from the OS keyring
func (k *systemKeyring) GetKey() (string, error) {
	key, err := keyring.Get(ServiceName, KeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keyring: %w", ErrKeyNotFound)
		}
		return "", fmt.Errorf("failed to retrieve key from keyring: %w", err)
	}

	if key == "" {
		return "", errors.New("encryption key is empty")
	}

	return key, nil
}

// SetKey stores the encryption key in the OS keyring
func (k *systemKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := keyring.Set(ServiceName, KeyName, password); err != nil {
		return fmt.Errorf("failed to store key in keyring: %w", err)
	}

	return nil
}

// DeleteKey removes the encryption key from the OS keyring
func (k *systemKeyring) DeleteKey() error {
	if err := keyring.Delete(ServiceName, KeyName); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring: %w", ErrKeyNotFound)
		}
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}

	return nil
}

// IsAvailable probes the keyring with a throwaway entry
func (k *systemKeyring) IsAvailable() bool {
	testKey := "__invoicer_availability_test__"
	if err := keyring.Set(ServiceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, testKey)
	return true
}

// envKeyring reads the key from INVOICER_DB_KEY and defers to next otherwise.
// Headless machines without a keyring daemon rely on it.
type envKeyring struct {
	next Keyring
}

func (k *envKeyring) GetKey() (string, error) {
	if key := os.Getenv(EnvKey); key != "" {
		return key, nil
	}
	return k.next.GetKey()
}

func (k *envKeyring) SetKey(password string) error {
	if os.Getenv(EnvKey) != "" {
		return nil
	}
	if !k.next.IsAvailable() {
		return fmt.Errorf("keyring not available on this system: please set %s instead", EnvKey)
	}
	return k.next.SetKey(password)
}

func (k *envKeyring) DeleteKey() error {
	if os.Getenv(EnvKey) != "" {
		return fmt.Errorf("key comes from %s: unset the variable manually", EnvKey)
	}
	return k.next.DeleteKey()
}

func (k *envKeyring) IsAvailable() bool {
	return os.Getenv(EnvKey) != "" || k.next.IsAvailable()
}
