package vault

import "errors"

// Sentinel kinds for vault errors.
var (
	ErrInvalidKey = errors.New("vault: key must be 16, 24 or 32 bytes")
	ErrMalformed  = errors.New("vault: malformed ciphertext")
	ErrDecrypt    = errors.New("vault: decryption failed (wrong key or tampered data)")
)
