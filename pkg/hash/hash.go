package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Params are the argon2id cost parameters embedded in every produced hash,
// so verification never depends on current configuration.
type Params struct {
	MemoryKiB uint32
	Time      uint32
	Threads   uint8
	SaltLen   uint32
	KeyLen    uint32
}

func DefaultParams() Params {
	return Params{
		MemoryKiB: 64 * 1024,
		Time:      2,
		Threads:   2,
		SaltLen:   16,
		KeyLen:    32,
	}
}

type Hasher struct {
	params Params
}

func New(p Params) *Hasher {
	if p.SaltLen == 0 {
		p.SaltLen = 16
	}
	if p.KeyLen == 0 {
		p.KeyLen = 32
	}
	return &Hasher{params: p}
}

func NewDefault() *Hasher { return New(DefaultParams()) }

var ErrMalformedHash = errors.New("malformed password hash")

// HashPassword encodes the salt and cost parameters into the stored
// representation: $argon2id$v=19$m=...,t=...,p=...$salt$key.
func (h *Hasher) HashPassword(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.MemoryKiB, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// CheckPassword verifies a plaintext against a stored hash. Bcrypt hashes
// produced by earlier deployments still verify; all new hashes are argon2id.
func (h *Hasher) CheckPassword(stored, password string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}

	salt, key, timeCost, memory, threads, err := decode(stored)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// NeedsRehash reports whether a stored hash was produced with a different
// algorithm or weaker costs than currently configured.
func (h *Hasher) NeedsRehash(stored string) bool {
	if !strings.HasPrefix(stored, "$argon2id$") {
		return true
	}
	_, _, timeCost, memory, threads, err := decode(stored)
	if err != nil {
		return true
	}
	return memory < h.params.MemoryKiB || timeCost < h.params.Time || threads < h.params.Threads
}

func decode(stored string) (salt, key []byte, timeCost, memory uint32, threads uint8, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		err = ErrMalformedHash
		return
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		err = ErrMalformedHash
		return
	}
	if version != argon2.Version {
		err = ErrMalformedHash
		return
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		err = ErrMalformedHash
		return
	}

	b64 := base64.RawStdEncoding
	if salt, err = b64.DecodeString(parts[4]); err != nil {
		err = ErrMalformedHash
		return
	}
	if key, err = b64.DecodeString(parts[5]); err != nil {
		err = ErrMalformedHash
		return
	}
	return
}
