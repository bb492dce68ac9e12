package cert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCert is the domain prefix for certificate content hashes.
// The version suffix leaves room for future algorithm migration.
const DomainCert = "attest/cert/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data). The null byte
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes the artifact's content hash: the domain-separated
// sha256 of its canonical serialization with meta.sha256 blanked.
// The artifact is left exactly as it was found.
func ContentHash(a Artifact) (string, error) {
	meta, hadMeta := a["meta"].(map[string]any)
	var stored any
	var hadHash bool
	if hadMeta {
		stored, hadHash = meta["sha256"]
		delete(meta, "sha256")
	}

	blob, err := MarshalCanonical(a)

	if hadHash {
		meta["sha256"] = stored
	}
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(DomainCert, blob), nil
}

// Seal computes the artifact's content hash and stores it under
// meta.sha256. Sealing an already-sealed artifact recomputes the hash
// over the current content.
func Seal(a Artifact) error {
	digest, err := ContentHash(a)
	if err != nil {
		return err
	}
	a.Meta()["sha256"] = digest
	return nil
}

// VerifySeal re-hashes a loaded artifact and compares against the
// stored digest. A mismatch means the artifact was altered after
// sealing (or never sealed).
func VerifySeal(a Artifact) error {
	meta, ok := a["meta"].(map[string]any)
	if !ok {
		return fmt.Errorf("verify seal: artifact has no meta block")
	}
	stored, ok := meta["sha256"].(string)
	if !ok || stored == "" {
		return fmt.Errorf("verify seal: artifact has no meta.sha256")
	}
	digest, err := ContentHash(a)
	if err != nil {
		return err
	}
	if digest != stored {
		return fmt.Errorf("verify seal: content hash mismatch: stored %s, computed %s", stored, digest)
	}
	return nil
}
