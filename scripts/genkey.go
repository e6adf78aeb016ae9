//go:build ignore

// One-off: go run scripts/genkey.go
// Prints a new age identity for ENCRYPTION_AGE_IDENTITY and its recipient.
package main

import (
	"fmt"
	"os"

	"filippo.io/age"
)

func main() {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		panic(err)
	}
	fmt.Fprintf(os.Stderr, "# recipient: %s\n", id.Recipient())
	fmt.Print(id.String())
}
