package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// sealedPrefix marks a message encrypted by this middleware.
const sealedPrefix = "sealed:v1:"

// ErrKeySize is returned for keys that are not 32 bytes long.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.WorkflowStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals Message node texts with AES-GCM before they reach the store.
//
// Only message bodies are encrypted: ids, types and edges stay readable so the store can keep
// enforcing id uniqueness. Callers always see plaintext, including inside Update. Messages
// written before encryption was enabled are read as they are and sealed on the next update.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrKeySize
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrKeySize
		}
	}
	return func(next ports.WorkflowStore) ports.WorkflowStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Create(ctx context.Context, wf *domain.Workflow) error {
	sealed := wf.Clone()
	if err := m.seal(sealed); err != nil {
		return err
	}
	return m.next.Create(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := m.next.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.open(wf); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", id, err)
	}
	return wf, nil
}

func (m *encryptionMiddleware) Update(ctx context.Context, id string, fn func(wf *domain.Workflow) error) error {
	return m.next.Update(ctx, id, func(wf *domain.Workflow) error {
		if err := m.open(wf); err != nil {
			return fmt.Errorf("workflow %s: %w", id, err)
		}
		if err := fn(wf); err != nil {
			return err
		}
		return m.seal(wf)
	})
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) LocateNode(ctx context.Context, nodeID string) (string, error) {
	return m.next.LocateNode(ctx, nodeID)
}

func (m *encryptionMiddleware) LocateEdge(ctx context.Context, edgeID string) (string, error) {
	return m.next.LocateEdge(ctx, edgeID)
}

func (m *encryptionMiddleware) seal(wf *domain.Workflow) error {
	for i := range wf.Nodes {
		msg := wf.Nodes[i].Message
		if msg == "" || strings.HasPrefix(msg, sealedPrefix) {
			continue
		}
		ciphertext, err := encrypt([]byte(msg), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt message of node %s: %w", wf.Nodes[i].ID, err)
		}
		wf.Nodes[i].Message = sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return nil
}

func (m *encryptionMiddleware) open(wf *domain.Workflow) error {
	for i := range wf.Nodes {
		encoded, ok := strings.CutPrefix(wf.Nodes[i].Message, sealedPrefix)
		if !ok {
			continue
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode message of node %s: %w", wf.Nodes[i].ID, err)
		}
		plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return fmt.Errorf("failed to decrypt message of node %s: %w", wf.Nodes[i].ID, err)
		}
		wf.Nodes[i].Message = string(plainText)
	}
	return nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

var _ ports.WorkflowStore = (*encryptionMiddleware)(nil)
