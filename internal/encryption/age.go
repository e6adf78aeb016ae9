package encryption

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"filippo.io/age"
)

// Age encrypts to a single X25519 recipient and stores the ciphertext as
// standard base64.
type Age struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	log       *slog.Logger
}

// NewAge parses an AGE-SECRET-KEY-1... identity. An empty key generates a
// fresh identity, which is enough while todos live only in memory.
func NewAge(secretKey string, log *slog.Logger) (*Age, error) {
	if log == nil {
		log = slog.Default()
	}
	var (
		identity *age.X25519Identity
		err      error
	)
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		identity, err = age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating age identity: %w", err)
		}
	} else {
		identity, err = age.ParseX25519Identity(secretKey)
		if err != nil {
			return nil, fmt.Errorf("parsing age identity: %w", err)
		}
	}
	return &Age{
		identity:  identity,
		recipient: identity.Recipient(),
		log:       log.With("component", "encryption"),
	}, nil
}

// Recipient returns the public key in age1... form.
func (a *Age) Recipient() string { return a.recipient.String() }

func (a *Age) Enabled() bool { return true }

// Encrypt returns base64 ciphertext, or text itself when empty or when
// encryption fails.
func (a *Age) Encrypt(ctx context.Context, text string) (string, bool) {
	if text == "" {
		return text, false
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, a.recipient)
	if err != nil {
		a.log.WarnContext(ctx, "encryption failed, storing plaintext", "error", err)
		return text, false
	}
	if _, err := io.WriteString(w, text); err != nil {
		a.log.WarnContext(ctx, "encryption failed, storing plaintext", "error", err)
		return text, false
	}
	if err := w.Close(); err != nil {
		a.log.WarnContext(ctx, "encryption failed, storing plaintext", "error", err)
		return text, false
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), true
}

// Decrypt reverses Encrypt. Values that are not base64 age ciphertext for
// this identity are returned as given.
func (a *Age) Decrypt(ctx context.Context, value string) string {
	if value == "" {
		return value
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return value
	}
	r, err := age.Decrypt(bytes.NewReader(raw), a.identity)
	if err != nil {
		a.log.DebugContext(ctx, "decryption failed, returning stored value", "error", err)
		return value
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		a.log.DebugContext(ctx, "decryption failed, returning stored value", "error", err)
		return value
	}
	return string(plain)
}
