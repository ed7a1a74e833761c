package key

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// NodeKey is the persistent peer key.
// It contains the nodes private key for authentication.
type NodeKey struct {
	PrivKey crypto.PrivKey // our priv key
	PubKey  crypto.PubKey  // our pub key
}

type nodeKeyJSON struct {
	PrivKeyBytes []byte `json:"priv_key"`
	PubKeyBytes  []byte `json:"pub_key"`
}

// MarshalJSON implements the json.Marshaler interface.
func (nodeKey *NodeKey) MarshalJSON() ([]byte, error) {
	if nodeKey.PrivKey == nil || nodeKey.PubKey == nil {
		return nil, fmt.Errorf("nodeKey has nil key(s)")
	}

	privBytes, err := nodeKey.PrivKey.Raw()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	pubBytes, err := nodeKey.PubKey.Raw()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return json.Marshal(nodeKeyJSON{
		PrivKeyBytes: privBytes,
		PubKeyBytes:  pubBytes,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (nodeKey *NodeKey) UnmarshalJSON(data []byte) error {
	aux := nodeKeyJSON{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	privKey, err := crypto.UnmarshalEd25519PrivateKey(aux.PrivKeyBytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal private key: %w", err)
	}

	pubKey, err := crypto.UnmarshalEd25519PublicKey(aux.PubKeyBytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	nodeKey.PrivKey = privKey
	nodeKey.PubKey = pubKey
	return nil
}

// ID returns the hex encoded, truncated sha256 of the public key.
func (nodeKey *NodeKey) ID() string {
	return PubKeyToID(nodeKey.PubKey)
}

// SaveAs persists the NodeKey to filePath.
func (nodeKey *NodeKey) SaveAs(filePath string) error {
	jsonBytes, err := json.Marshal(nodeKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonBytes, 0600)
}

// PubKeyToID returns the ID corresponding to the given PubKey: the first 20
// bytes of its sha256, hex encoded.
func PubKeyToID(pubKey crypto.PubKey) string {
	if pubKey == nil {
		return ""
	}
	raw, err := pubKey.Raw()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:20])
}

// GenerateNodeKey creates a fresh ed25519 node key.
func GenerateNodeKey() (*NodeKey, error) {
	privKey, pubKey, err := crypto.GenerateKeyPair(crypto.Ed25519, 256)
	if err != nil {
		return nil, err
	}
	return &NodeKey{PrivKey: privKey, PubKey: pubKey}, nil
}

// LoadOrGenNodeKey attempts to load the NodeKey from the given filePath. If
// the file does not exist, it generates and saves a new NodeKey.
func LoadOrGenNodeKey(filePath string) (*NodeKey, error) {
	nodeKey, err := LoadNodeKey(filePath)
	if err == nil {
		return nodeKey, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	nodeKey, err = GenerateNodeKey()
	if err != nil {
		return nil, err
	}
	if err := nodeKey.SaveAs(filePath); err != nil {
		return nil, err
	}
	return nodeKey, nil
}

// LoadNodeKey loads NodeKey located in filePath.
func LoadNodeKey(filePath string) (*NodeKey, error) {
	jsonBytes, err := os.ReadFile(filePath) //nolint:gosec
	if err != nil {
		return nil, err
	}
	nodeKey := new(NodeKey)
	if err := json.Unmarshal(jsonBytes, nodeKey); err != nil {
		return nil, err
	}
	return nodeKey, nil
}
