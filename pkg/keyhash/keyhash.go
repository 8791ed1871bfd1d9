// Package keyhash recognises well known card issuer keys without shipping
// them: only a salted digest of each key is distributed.
//
// The digest is
//
//	lowercase(hex(md5(salt + key + salt)))
//
// MD5 is pinned on purpose. It only has to be on par with the cards
// themselves, which are trivially cracked; it is not a strength guarantee.
//
// This only works for families that share a key across all cards. Families
// with per-card diversified keys cannot be matched against a fixed list.
package keyhash

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	// Registers crypto.MD5.
	_ "crypto/md5"

	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger().WithField("pkg", "keyhash")

var (
	// ErrNoCandidates is returned when no expected digests were supplied.
	ErrNoCandidates = errors.New("no candidate digests")
	// ErrNotFound is returned when the key matches none of the candidates.
	ErrNotFound = errors.New("key digest not found")
	// ErrAlgorithmUnavailable is returned when the digest algorithm is not linked in.
	ErrAlgorithmUnavailable = errors.New("digest algorithm unavailable")
)

// Legacy result codes, for callers that store a single integer.
const (
	CodeNoCandidates         = -1
	CodeAlgorithmUnavailable = -2
	CodeNotFound             = -3
)

// Algorithm is the pinned digest algorithm.
const Algorithm = crypto.MD5

// newHash is swapped in tests to simulate a missing implementation.
var newHash = func() (hash.Hash, error) {
	if !Algorithm.Available() {
		return nil, ErrAlgorithmUnavailable
	}
	return Algorithm.New(), nil
}

// Digest returns the salted digest of key.
func Digest(key []byte, salt string) (string, error) {
	h, err := newHash()
	if err != nil {
		return "", err
	}
	h.Write([]byte(salt))
	h.Write(key)
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Match returns the index of the first candidate equal to the salted digest
// of key.
func Match(key []byte, salt string, candidates ...string) (int, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	digest, err := Digest(key, salt)
	if err != nil {
		return 0, err
	}
	logger.Debugf("key digest: %s", digest)

	for i, c := range candidates {
		if c == digest {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w among %d candidates", ErrNotFound, len(candidates))
}

// Code folds a Match result into a single integer: the index on success or
// one of the negative Code constants.
func Code(index int, err error) int {
	switch {
	case err == nil:
		return index
	case errors.Is(err, ErrNoCandidates):
		return CodeNoCandidates
	case errors.Is(err, ErrAlgorithmUnavailable):
		return CodeAlgorithmUnavailable
	default:
		return CodeNotFound
	}
}
