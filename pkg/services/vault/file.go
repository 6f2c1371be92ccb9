package vault

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/de-tools/royalty-ledger/pkg/models/domain"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"gopkg.in/ini.v1"
)

const (
	section     = "credentials"
	keyUsername = "username"
	keySecret   = "secret"

	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	// scrypt cost parameters
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// FileVault keeps the username in clear and the secret sealed with a passphrase
// derived key, in an ini file:
//
//	[credentials]
//	username = author@example.com
//	secret   = <base64 salt|nonce|box>
type FileVault struct {
	path       string
	passphrase []byte
}

func NewFileVault(path, passphrase string) (*FileVault, error) {
	if path == "" {
		return nil, domain.NewInvalidInputError("vault path is required", nil)
	}
	if passphrase == "" {
		return nil, domain.NewInvalidInputError("vault passphrase is required (ROYALTY_VAULT_PASSPHRASE)", nil)
	}
	return &FileVault{path: path, passphrase: []byte(passphrase)}, nil
}

func (v *FileVault) Credentials(ctx context.Context) (domain.Credentials, error) {
	if _, err := os.Stat(v.path); errors.Is(err, fs.ErrNotExist) {
		return domain.Credentials{}, domain.NewNotFoundError(fmt.Sprintf("no credentials stored at %s", v.path))
	}
	cfg, err := ini.Load(v.path)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load vault %s: %w", v.path, err)
	}

	s := cfg.Section(section)
	username := s.Key(keyUsername).String()
	sealed := s.Key(keySecret).String()
	if username == "" || sealed == "" {
		return domain.Credentials{}, domain.NewNotFoundError(fmt.Sprintf("vault %s has no credentials", v.path))
	}

	secret, err := v.open(sealed)
	if err != nil {
		return domain.Credentials{}, err
	}

	zerolog.Ctx(ctx).Debug().Str("path", v.path).Msg("loaded credentials from file vault")
	return domain.Credentials{Username: username, Secret: secret}, nil
}

func (v *FileVault) Save(ctx context.Context, creds domain.Credentials) error {
	if creds.Empty() {
		return domain.NewInvalidInputError("username and secret are required", nil)
	}

	sealed, err := v.seal(creds.Secret)
	if err != nil {
		return err
	}

	cfg := ini.Empty()
	s := cfg.Section(section)
	s.Key(keyUsername).SetValue(creds.Username)
	s.Key(keySecret).SetValue(sealed)

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	if err := os.WriteFile(v.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write vault %s: %w", v.path, err)
	}

	zerolog.Ctx(ctx).Info().Str("path", v.path).Str("username", creds.Username).Msg("stored credentials")
	return nil
}

func (v *FileVault) seal(secret string) (string, error) {
	var salt [saltSize]byte
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	key, err := v.key(salt[:])
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(secret)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(secret), &nonce, key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (v *FileVault) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return "", domain.NewAuthenticationError("vault secret is corrupted", err)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := v.key(raw[:saltSize])
	if err != nil {
		return "", err
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return "", domain.NewAuthenticationError("wrong vault passphrase", nil)
	}
	return string(plain), nil
}

func (v *FileVault) key(salt []byte) (*[keySize]byte, error) {
	derived, err := scrypt.Key(v.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], derived)
	return &key, nil
}
