package mint

import (
	"context"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/solana"
	"transfer-hook-lab/internal/solana/stub"
	"transfer-hook-lab/internal/token2022"
)

func createdMint(t *testing.T, l *stub.Ledger, payer sol.PrivateKey) sol.PublicKey {
	t.Helper()
	mint := sol.NewWallet().PrivateKey
	p := hookParams(t, payer.PublicKey(), mint.PublicKey())
	_, err := NewComposer(newSubmitter(l), token2022.DefaultRent(), nil).Create(context.Background(), payer, mint, p)
	require.NoError(t, err)
	return mint.PublicKey()
}

func tokenAccount(t *testing.T, l *stub.Ledger, key sol.PublicKey) *token2022.TokenAccount {
	t.Helper()
	acct, ok := l.Account(key)
	require.True(t, ok, "token account %s missing", key)
	ta, err := token2022.DecodeTokenAccount(acct.Data)
	require.NoError(t, err)
	return ta
}

func TestIssuer_Issue(t *testing.T) {
	l := stub.NewLedger()
	payer := sol.NewWallet().PrivateKey
	l.Fund(payer.PublicKey(), 10*solana.LamportsPerSOL)
	mint := createdMint(t, l, payer)
	recipient := sol.NewWallet().PublicKey()

	iss, err := NewIssuer(newSubmitter(l), nil).Issue(context.Background(), IssueParams{
		Payer:               payer,
		Mint:                mint,
		Holder:              payer.PublicKey(),
		Recipient:           recipient,
		Amount:              1,
		RevokeMintAuthority: true,
	})
	require.NoError(t, err)

	holder := tokenAccount(t, l, iss.HolderAccount)
	assert.Equal(t, uint64(1), holder.Amount)
	assert.Equal(t, payer.PublicKey(), holder.Owner)
	assert.Equal(t, uint64(0), tokenAccount(t, l, iss.RecipientAccount).Amount)

	acct, _ := l.Account(mint)
	m, err := token2022.DecodeMint(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Supply)
	assert.Nil(t, m.MintAuthority)
}

func TestIssuer_IssueTwiceWithoutRevoke(t *testing.T) {
	l := stub.NewLedger()
	payer := sol.NewWallet().PrivateKey
	l.Fund(payer.PublicKey(), 10*solana.LamportsPerSOL)
	mint := createdMint(t, l, payer)
	issuer := NewIssuer(newSubmitter(l), nil)

	p := IssueParams{Payer: payer, Mint: mint, Holder: payer.PublicKey(), Recipient: sol.NewWallet().PublicKey(), Amount: 5}
	first, err := issuer.Issue(context.Background(), p)
	require.NoError(t, err)
	second, err := issuer.Issue(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first.HolderAccount, second.HolderAccount)
	assert.Equal(t, uint64(10), tokenAccount(t, l, first.HolderAccount).Amount)
}

func TestIssuer_RevokedAuthorityCannotMint(t *testing.T) {
	l := stub.NewLedger()
	payer := sol.NewWallet().PrivateKey
	l.Fund(payer.PublicKey(), 10*solana.LamportsPerSOL)
	mint := createdMint(t, l, payer)
	issuer := NewIssuer(newSubmitter(l), nil)

	p := IssueParams{Payer: payer, Mint: mint, Holder: payer.PublicKey(), Recipient: sol.NewWallet().PublicKey(), Amount: 1, RevokeMintAuthority: true}
	_, err := issuer.Issue(context.Background(), p)
	require.NoError(t, err)

	p.RevokeMintAuthority = false
	_, err = issuer.Issue(context.Background(), p)
	require.Error(t, err)
	assert.True(t, solana.IsRejectedFor(err, solana.ReasonInvalidAccountData))
}

func TestIssuer_ZeroAmount(t *testing.T) {
	_, err := NewIssuer(nil, nil).Issue(context.Background(), IssueParams{})
	require.Error(t, err)
}
