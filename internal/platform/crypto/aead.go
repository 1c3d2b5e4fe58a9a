package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeyTemplate names an AEAD primitive and its key size.
type KeyTemplate string

const (
	AES256GCM         KeyTemplate = "AES256_GCM"
	ChaCha20Poly1305  KeyTemplate = "CHACHA20_POLY1305"
	XChaCha20Poly1305 KeyTemplate = "XCHACHA20_POLY1305"
)

// KeySize is shared by every supported template.
const KeySize = 32

var (
	ErrUnknownTemplate = errors.New("unknown key template")
	ErrInvalidKey      = errors.New("invalid key length")
	ErrDecrypt         = errors.New("decryption failed")
)

// ParseKeyTemplate accepts the template names case-insensitively. An empty
// name selects AES256_GCM.
func ParseKeyTemplate(s string) (KeyTemplate, error) {
	switch KeyTemplate(strings.ToUpper(strings.TrimSpace(s))) {
	case "", AES256GCM:
		return AES256GCM, nil
	case ChaCha20Poly1305:
		return ChaCha20Poly1305, nil
	case XChaCha20Poly1305:
		return XChaCha20Poly1305, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, s)
	}
}

// AEAD encrypts strings into base64(nonce || ciphertext). When a call passes
// no associated data the default AAD given at construction is bound instead.
type AEAD struct {
	aead       cipher.AEAD
	template   KeyTemplate
	defaultAAD []byte
}

func NewAEAD(template KeyTemplate, key []byte, defaultAAD string) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(key), KeySize)
	}

	var (
		a   cipher.AEAD
		err error
	)
	switch template {
	case AES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			a, err = cipher.NewGCM(block)
		}
	case ChaCha20Poly1305:
		a, err = chacha20poly1305.New(key)
	case XChaCha20Poly1305:
		a, err = chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}
	if err != nil {
		return nil, err
	}

	return &AEAD{aead: a, template: template, defaultAAD: []byte(defaultAAD)}, nil
}

func (a *AEAD) Template() KeyTemplate {
	return a.template
}

func (a *AEAD) Encrypt(plaintext, aad string) (string, error) {
	nonce := make([]byte, a.aead.NonceSize(), a.aead.NonceSize()+len(plaintext)+a.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := a.aead.Seal(nonce, nonce, []byte(plaintext), a.associated(aad))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (a *AEAD) Decrypt(ciphertext, aad string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	ns := a.aead.NonceSize()
	if len(raw) < ns+a.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plain, err := a.aead.Open(nil, raw[:ns], raw[ns:], a.associated(aad))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

func (a *AEAD) associated(aad string) []byte {
	if aad == "" {
		return a.defaultAAD
	}
	return []byte(aad)
}

// GenerateKey returns KeySize random bytes.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveKey stretches a passphrase with argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, KeySize)
}

// SubKey derives a purpose-bound key from key using HKDF-SHA256.
func SubKey(key []byte, info string) ([]byte, error) {
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(info)), out); err != nil {
		return nil, err
	}
	return out, nil
}
