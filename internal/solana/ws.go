package solana

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
)

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature waits for a signature to reach the commitment. The
	// channel receives at most one notification and is then closed.
	SubscribeSignature(ctx context.Context, signature sol.Signature, commitment Commitment) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureSubscribe message.
type SignatureNotification struct {
	Signature sol.Signature
	Slot      int64
	Err       interface{}
}
