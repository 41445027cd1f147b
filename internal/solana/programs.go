package solana

import sol "github.com/gagliardetto/solana-go"

// Well-known program and sysvar addresses.
var (
	SystemProgramID          = sol.MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID           = sol.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID       = sol.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = sol.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentID             = sol.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// DefaultHookProgramID is the transfer-hook program deployed for companion minting.
var DefaultHookProgramID = sol.MustPublicKeyFromBase58("5FYsLEZ2vjDHmrs2UAVfDozy45zyPec26pjYvvgMiWhX")

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000
