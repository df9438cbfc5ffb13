package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"github.com/avolkov/leadbook/internal/common"
	"golang.org/x/crypto/argon2"
)

// envelope is the on-disk format of an encrypted archive. Salt and nonce are
// stored in the clear, the snapshot JSON is sealed with AES-GCM under a key
// derived from the passphrase.
type envelope struct {
	Version    int    `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

const envelopeVersion = 1

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

func seal(snapshot *Snapshot, passphrase []byte) ([]byte, error) {
	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	salt := common.GenerateRandByteArray(16)
	key := deriveKey(passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	env := envelope{
		Version:    envelopeVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aesgcm.Seal(nil, nonce, plaintext, nil),
	}
	return json.Marshal(env)
}

func open(data, passphrase []byte) (*Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("not an encrypted archive: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported archive version %d", env.Version)
	}

	key := deriveKey(passphrase, env.Salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong passphrase or corrupt archive: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
