package models

// Parameters of the queue store's AES-256-GCM cell encryption
const (
	EncryptionKeySize    = 32
	EncryptionNonceSize  = 12
	EncryptionIterations = 210000 // PBKDF2-SHA256
)
