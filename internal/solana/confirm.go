package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	sol "github.com/gagliardetto/solana-go"
)

// Confirmer waits until a signature reaches a commitment level.
type Confirmer interface {
	Confirm(ctx context.Context, signature sol.Signature, commitment Commitment) error
}

var errNotYet = errors.New("signature not yet at commitment")

// PollingConfirmer polls getSignatureStatuses with exponential backoff.
// There is no built-in deadline; callers bound the wait with ctx.
type PollingConfirmer struct {
	client          RPCClient
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewPollingConfirmer creates a confirmer polling client.
func NewPollingConfirmer(client RPCClient, initialInterval, maxInterval time.Duration) *PollingConfirmer {
	if initialInterval <= 0 {
		initialInterval = 400 * time.Millisecond
	}
	if maxInterval < initialInterval {
		maxInterval = initialInterval
	}
	return &PollingConfirmer{
		client:          client,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
	}
}

// Confirm blocks until signature reaches commitment, the transaction fails,
// or ctx is done.
func (p *PollingConfirmer) Confirm(ctx context.Context, signature sol.Signature, commitment Commitment) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialInterval
	b.MaxInterval = p.maxInterval
	b.MaxElapsedTime = 0

	op := func() error {
		statuses, err := p.client.GetSignatureStatuses(ctx, signature)
		if err != nil {
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(statuses) == 0 || statuses[0] == nil {
			return errNotYet
		}
		status := statuses[0]
		if status.Err != nil {
			return backoff.Permanent(&TransactionError{Signature: signature.String(), Err: status.Err})
		}
		if !status.Reached(commitment) {
			return errNotYet
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("confirm %s: %w", signature, err)
	}
	return nil
}

// WSConfirmer waits on a signatureSubscribe notification. A single status
// query after subscribing covers signatures that landed before the
// subscription was registered.
type WSConfirmer struct {
	ws     WSClient
	client RPCClient
}

// NewWSConfirmer creates a confirmer backed by ws.
func NewWSConfirmer(ws WSClient, client RPCClient) *WSConfirmer {
	return &WSConfirmer{ws: ws, client: client}
}

// Confirm blocks until signature reaches commitment, the transaction fails,
// or ctx is done.
func (w *WSConfirmer) Confirm(ctx context.Context, signature sol.Signature, commitment Commitment) error {
	ch, err := w.ws.SubscribeSignature(ctx, signature, commitment)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", signature, err)
	}

	statuses, err := w.client.GetSignatureStatuses(ctx, signature)
	if err == nil && len(statuses) == 1 && statuses[0] != nil {
		if statuses[0].Err != nil {
			return &TransactionError{Signature: signature.String(), Err: statuses[0].Err}
		}
		if statuses[0].Reached(commitment) {
			return nil
		}
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("confirm %s: %w", signature, ctx.Err())
	case notif, ok := <-ch:
		if !ok {
			return fmt.Errorf("confirm %s: subscription closed", signature)
		}
		if notif.Err != nil {
			return &TransactionError{Signature: signature.String(), Err: notif.Err}
		}
		return nil
	}
}
