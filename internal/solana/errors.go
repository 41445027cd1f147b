package solana

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// JSON-RPC error codes returned by Solana nodes.
const (
	CodeSendTransactionPreflightFailure = -32002
	CodeBlockhashNotFound               = -32008
)

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Logs returns the program logs attached to a preflight failure.
func (e *RPCError) Logs() []string {
	if len(e.Data) == 0 {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil
	}
	return data.Logs
}

// TransactionError is returned when a landed transaction failed.
type TransactionError struct {
	Signature string
	Err       interface{}
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

var instructionErrorPattern = regexp.MustCompile(`Error processing Instruction (\d+): (.+)$`)

// InstructionError extracts the failing instruction index and the reason
// from a preflight failure.
func InstructionError(err error) (index int, reason string, ok bool) {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return 0, "", false
	}
	m := instructionErrorPattern.FindStringSubmatch(rpcErr.Message)
	if m == nil {
		return 0, "", false
	}
	idx, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, "", false
	}
	return idx, strings.TrimSpace(m[2]), true
}

// Rejection reasons as reported by the runtime.
const (
	ReasonAccountInUse       = "account already in use"
	ReasonInvalidAccountData = "invalid account data for instruction"
	ReasonMissingAccount     = "an account required by the instruction is missing"
	ReasonMissingSignature   = "missing required signature for instruction"
	ReasonInsufficientFunds  = "insufficient funds"
	ReasonInvalidSeeds       = "provided seeds do not result in a valid address"
	ReasonIncorrectProgramID = "incorrect program id for instruction"
	ReasonInvalidData        = "invalid instruction data"
)

// IsRejectedFor reports whether err is a preflight failure whose reason
// starts with reason.
func IsRejectedFor(err error, reason string) bool {
	_, r, ok := InstructionError(err)
	return ok && strings.HasPrefix(r, reason)
}

// IsInsufficientFundsForRent reports whether the transaction left an
// account below its rent-exempt minimum.
func IsInsufficientFundsForRent(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && strings.Contains(rpcErr.Message, "insufficient funds for rent")
}
