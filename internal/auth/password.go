package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2Params はargon2idのコストパラメータ。
type argon2Params struct {
	memory     uint32 // KiB
	iterations uint32
	threads    uint8
	saltLength int
	keyLength  uint32
}

// hashParams は新規ハッシュ生成時に使うパラメータ。
// 検証時はPHC文字列に埋め込まれたパラメータを使うため、変更しても既存ハッシュは検証できる。
var hashParams = argon2Params{
	memory:     64 * 1024,
	iterations: 3,
	threads:    1,
	saltLength: 16,
	keyLength:  32,
}

// passwordHash はパース済みのargon2id PHC文字列を表す。
type passwordHash struct {
	params argon2Params
	salt   []byte
	sum    []byte
}

// HashPassword はパスワードをargon2idでハッシュ化し、PHC形式の文字列を返す。
// 形式: $argon2id$v=19$m=<memory>,t=<iterations>,p=<threads>$<salt>$<sum>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	p := hashParams
	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.threads, p.keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.iterations,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyPassword はパスワードがPHC形式のハッシュと一致するかを定数時間で比較する。
// ハッシュ文字列が不正な場合はエラーを返す。
func VerifyPassword(password, phc string) (bool, error) {
	h, err := parsePasswordHash(phc)
	if err != nil {
		return false, err
	}
	sum := argon2.IDKey([]byte(password), h.salt, h.params.iterations, h.params.memory, h.params.threads, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1, nil
}

func parsePasswordHash(phc string) (*passwordHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}

	var p argon2Params
	for _, param := range strings.Split(parts[3], ",") {
		key, val, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.New("invalid argon2id params")
		}
		switch key {
		case "m":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, errors.New("invalid argon2id memory")
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, errors.New("invalid argon2id iterations")
			}
			p.iterations = uint32(n)
		case "p":
			n, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return nil, errors.New("invalid argon2id parallelism")
			}
			p.threads = uint8(n)
		default:
			return nil, errors.New("invalid argon2id params")
		}
	}
	if p.memory == 0 || p.iterations == 0 || p.threads == 0 {
		return nil, errors.New("invalid argon2id params")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.New("invalid argon2id salt")
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return nil, errors.New("invalid argon2id hash")
	}

	return &passwordHash{params: p, salt: salt, sum: sum}, nil
}
