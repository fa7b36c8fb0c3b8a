package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength   = 32
	nonceLength = 12
	saltLength  = 32
	iterations  = 100000

	sealVersion = 1
)

var ErrInvalidPassphrase = errors.New("invalid passphrase or corrupted data")

// SealedData is a passphrase-encrypted payload. Label is bound as additional
// data, so a blob sealed for one purpose cannot be opened as another.
type SealedData struct {
	Version    int    `json:"version"`
	Label      string `json:"label"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func Seal(data []byte, passphrase, label string) (*SealedData, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return &SealedData{
		Version:    sealVersion,
		Label:      label,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, data, []byte(label)),
	}, nil
}

func Open(sealed *SealedData, passphrase string) ([]byte, error) {
	if sealed == nil {
		return nil, errors.New("sealed data is nil")
	}
	if sealed.Version != sealVersion {
		return nil, errors.New("unsupported sealed data version")
	}
	if len(sealed.Nonce) != nonceLength {
		return nil, ErrInvalidPassphrase
	}

	gcm, err := newGCM(passphrase, sealed.Salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, sealed.Nonce, sealed.Ciphertext, []byte(sealed.Label))
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
