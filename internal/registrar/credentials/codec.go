package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"golang.org/x/crypto/hkdf"
	"gorm.io/datatypes"
)

const (
	payloadVersion = 1
	hkdfInfo       = "domainledger/registrar-credentials/v1"
)

var errMalformedPayload = errors.New("malformed_credential_payload")

type sealedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Codec seals registrar credential bags with AES-256-GCM. The key is derived from the
// configured secret with HKDF-SHA256.
type Codec struct {
	key []byte
}

func NewCodec(secret string) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Codec{}, nil
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	return &Codec{key: key}, nil
}

func ProvideCodec(cfg config.Config) (*Codec, error) {
	return NewCodec(cfg.CredentialSecret)
}

// Seal encrypts creds. Empty bags seal to nil.
func (c *Codec) Seal(creds domain.Credentials) (datatypes.JSON, error) {
	creds = creds.Normalize()
	if creds.Empty() {
		return nil, nil
	}
	if len(c.key) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	gcm, err := c.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out, err := json.Marshal(sealedPayload{
		Version:    payloadVersion,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// Open decrypts a sealed bag. Empty input yields empty credentials and no error.
func (c *Codec) Open(sealed []byte) (domain.Credentials, error) {
	if len(strings.TrimSpace(string(sealed))) == 0 || string(sealed) == "null" {
		return domain.Credentials{}, nil
	}
	if len(c.key) == 0 {
		return domain.Credentials{}, domain.ErrEncryptionKeyMissing
	}

	var payload sealedPayload
	if err := json.Unmarshal(sealed, &payload); err != nil {
		return domain.Credentials{}, errMalformedPayload
	}
	if payload.Version != payloadVersion {
		return domain.Credentials{}, fmt.Errorf("%w: version %d", errMalformedPayload, payload.Version)
	}
	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return domain.Credentials{}, errMalformedPayload
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return domain.Credentials{}, errMalformedPayload
	}

	gcm, err := c.aead()
	if err != nil {
		return domain.Credentials{}, err
	}
	if len(nonce) != gcm.NonceSize() {
		return domain.Credentials{}, errMalformedPayload
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return domain.Credentials{}, err
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return domain.Credentials{}, errMalformedPayload
	}
	return creds.Normalize(), nil
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
