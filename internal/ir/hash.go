package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "sortie/snapshot/v1"
	DomainCampaign = "sortie/campaign/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash identifies the content of a progress record.
// Two records with equal hashes differ at most in Revision, so writing the
// second one would not change what a later load returns.
func SnapshotHash(p PersistedProgress) (string, error) {
	canonical, err := MarshalCanonical(p.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// CampaignHash identifies a compiled campaign graph by its missions and edges.
func CampaignHash(c Campaign) (string, error) {
	missions := make([]any, len(c.Missions))
	for i, m := range c.Missions {
		missions[i] = map[string]any{
			"id":          m.ID,
			"difficulty":  m.Difficulty,
			"nextChoices": nonNil(m.NextChoices),
			"isFinal":     m.IsFinal,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"name":     c.Name,
		"missions": missions,
	})
	if err != nil {
		return "", fmt.Errorf("CampaignHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCampaign, canonical), nil
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotHash(p PersistedProgress) string {
	h, err := SnapshotHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
