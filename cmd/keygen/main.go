// Package main implements keygen, a helper that generates a random API
// key and the bcrypt hash to put in the server configuration
// (auth.api_key_hash). The plaintext key is shown once; only the hash
// is stored.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

const keyBytes = 32

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	key := flag.String("key", "", "hash an existing key instead of generating one")
	flag.Parse()

	apiKey := *key
	if apiKey == "" {
		buf := make([]byte, keyBytes)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating random key: %v\n", err)
			os.Exit(1)
		}
		apiKey = base64.RawURLEncoding.EncodeToString(buf)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key: %s\nHash:    %s\n", apiKey, string(hash))
}
