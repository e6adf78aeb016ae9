// Package encryption provides the optional text encryption applied to todos
// at rest. Ciphertext and plaintext share one string representation, so
// Decrypt cannot always tell whether a value was ever encrypted; it returns
// its input unchanged whenever decoding or decryption fails.
package encryption

import "context"

// Gateway encrypts todo text on write and decrypts it on read. Neither
// method fails: on any error the input is returned unchanged.
type Gateway interface {
	// Encrypt returns the value to store and whether it is ciphertext.
	Encrypt(ctx context.Context, text string) (string, bool)
	Decrypt(ctx context.Context, value string) string
	Enabled() bool
}

// Noop passes text through unchanged.
type Noop struct{}

func (Noop) Encrypt(_ context.Context, text string) (string, bool) { return text, false }
func (Noop) Decrypt(_ context.Context, value string) string { return value }
func (Noop) Enabled() bool { return false }
