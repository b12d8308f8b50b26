package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetBalanceResult, error)

	GetTokenAccountBalance(
		ctx context.Context,
		account solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)

	GetTokenSupply(
		ctx context.Context,
		mint solana.PublicKey,
		commitment rpc.CommitmentType,
	) (*rpc.GetTokenSupplyResult, error)

	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
	) (*rpc.GetAccountInfoResult, error)

	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	SendTransaction(
		ctx context.Context,
		tx *solana.Transaction,
	) (solana.Signature, error)
}

// Client checks funding balances and submits funding transfers.
// It wraps the RPC client with domain-specific operations. Calls are made
// once; any RPC error is returned to the caller without retry.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// recordCall records metrics for a single RPC round trip.
func (c *Client) recordCall(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

func (c *Client) recordBalanceCheck(asset string, err error) {
	if c.metrics == nil {
		return
	}
	result := "sufficient"
	var insufficient *InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		result = "insufficient"
	case err != nil:
		result = "error"
	}
	c.metrics.RecordBalanceCheck(asset, result)
}

// NativeBalance returns the lamport balance of account.
func (c *Client) NativeBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentFinalized)
	c.recordCall("GetBalance", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	if out == nil {
		return 0, fmt.Errorf("failed to get balance for %s: empty response", account)
	}
	return out.Value, nil
}

// CheckNativeBalance verifies that account holds at least required lamports
// and returns the balance it observed. A balance equal to required passes.
func (c *Client) CheckNativeBalance(ctx context.Context, account solana.PublicKey, required uint64) (uint64, error) {
	balance, err := c.NativeBalance(ctx, account)
	if err == nil && balance < required {
		err = &InsufficientBalanceError{
			Account:  account,
			Required: required,
			Actual:   balance,
		}
	}
	c.recordBalanceCheck(AssetSOL, err)
	if err != nil {
		return balance, err
	}

	c.logger.DebugContext(ctx, "native balance sufficient",
		"account", account.String(),
		"balance", balance,
		"required", required,
	)
	return balance, nil
}

// TokenBalance returns the raw balance of owner's associated token account
// for mint, together with the token account address.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	start := time.Now()
	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	c.recordCall("GetTokenAccountBalance", start, err)
	if err != nil {
		return 0, ata, fmt.Errorf("failed to get token balance for %s: %w", ata, err)
	}
	if out == nil || out.Value == nil {
		return 0, ata, fmt.Errorf("failed to get token balance for %s: empty response", ata)
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, ata, fmt.Errorf("invalid token amount %q for %s: %w", out.Value.Amount, ata, err)
	}
	return amount, ata, nil
}

// CheckTokenBalance verifies that owner's associated token account for mint
// holds at least required raw units and returns the balance it observed.
func (c *Client) CheckTokenBalance(ctx context.Context, owner, mint solana.PublicKey, required uint64) (uint64, error) {
	balance, ata, err := c.TokenBalance(ctx, owner, mint)
	if err == nil && balance < required {
		m := mint
		err = &InsufficientBalanceError{
			Account:  ata,
			Mint:     &m,
			Required: required,
			Actual:   balance,
		}
	}
	c.recordBalanceCheck(AssetToken, err)
	if err != nil {
		return balance, err
	}

	c.logger.DebugContext(ctx, "token balance sufficient",
		"owner", owner.String(),
		"token_account", ata.String(),
		"mint", mint.String(),
		"balance", balance,
		"required", required,
	)
	return balance, nil
}

// MintDecimals returns the decimals recorded on the mint account.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	start := time.Now()
	out, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentFinalized)
	c.recordCall("GetTokenSupply", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to get token supply for mint %s: %w", mint, err)
	}
	if out == nil || out.Value == nil {
		return 0, fmt.Errorf("failed to get token supply for mint %s: empty response", mint)
	}
	return out.Value.Decimals, nil
}

// VerifyMintDecimals fails with a DecimalsMismatchError when decimals does
// not match the mint.
func (c *Client) VerifyMintDecimals(ctx context.Context, mint solana.PublicKey, decimals uint8) error {
	actual, err := c.MintDecimals(ctx, mint)
	if err != nil {
		return err
	}
	if actual != decimals {
		return &DecimalsMismatchError{Mint: mint, Expected: decimals, Actual: actual}
	}
	return nil
}

// accountExists reports whether account is present on-ledger.
func (c *Client) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		c.recordCall("GetAccountInfo", start, nil)
		return false, nil
	}
	c.recordCall("GetAccountInfo", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	return out != nil && out.Value != nil, nil
}

// SendNative transfers amount lamports from sender to recipient and returns
// the transaction signature. "Sent" means accepted by the RPC node; no
// confirmation polling is done.
func (c *Client) SendNative(
	ctx context.Context,
	sender solana.PrivateKey,
	recipient solana.PublicKey,
	amount uint64,
) (solana.Signature, error) {
	instruction := system.NewTransferInstruction(
		amount,
		sender.PublicKey(),
		recipient,
	).Build()

	sig, err := c.submit(ctx, sender, []solana.Instruction{instruction})
	if c.metrics != nil {
		c.metrics.RecordTransfer(AssetSOL, amount, err)
	}
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send SOL: %w", err)
	}

	c.logger.InfoContext(ctx, "native transfer submitted",
		"from", sender.PublicKey().String(),
		"to", recipient.String(),
		"lamports", amount,
		"signature", sig.String(),
	)
	return sig, nil
}

// BuildTokenInstructions returns the instructions for an SPL token transfer
// from sender to req.Recipient. When the recipient has no associated token
// account yet, a create instruction paid by sender comes first.
func (c *Client) BuildTokenInstructions(
	ctx context.Context,
	sender solana.PublicKey,
	req FundingRequest,
) ([]solana.Instruction, error) {
	if req.Mint == nil {
		return nil, fmt.Errorf("token mint is required for a token transfer")
	}
	mint := *req.Mint

	senderATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sender token account: %w", err)
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(req.Recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	exists, err := c.accountExists(ctx, recipientATA)
	if err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, 2)
	if !exists {
		c.logger.InfoContext(ctx, "creating associated token account for recipient",
			"token_account", recipientATA.String(),
			"owner", req.Recipient.String(),
			"mint", mint.String(),
		)
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			sender,
			req.Recipient,
			mint,
		).Build())
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		req.Amount,
		req.Decimals,
		senderATA,
		mint,
		recipientATA,
		sender,
		nil,
	).Build())

	return instructions, nil
}

// SendToken transfers req.Amount raw units of req.Mint from sender's
// associated token account to the recipient's, creating the recipient's
// account in the same transaction when needed.
func (c *Client) SendToken(
	ctx context.Context,
	sender solana.PrivateKey,
	req FundingRequest,
) (solana.Signature, error) {
	instructions, err := c.BuildTokenInstructions(ctx, sender.PublicKey(), req)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send tokens: %w", err)
	}

	sig, err := c.submit(ctx, sender, instructions)
	if c.metrics != nil {
		c.metrics.RecordTransfer(AssetToken, req.Amount, err)
	}
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send tokens: %w", err)
	}

	c.logger.InfoContext(ctx, "token transfer submitted",
		"from", sender.PublicKey().String(),
		"to", req.Recipient.String(),
		"mint", req.Mint.String(),
		"amount", req.Amount,
		"decimals", req.Decimals,
		"instructions", len(instructions),
		"signature", sig.String(),
	)
	return sig, nil
}

// submit anchors instructions to the latest blockhash, signs them with
// sender as fee payer and sends the transaction.
func (c *Client) submit(
	ctx context.Context,
	sender solana.PrivateKey,
	instructions []solana.Instruction,
) (solana.Signature, error) {
	start := time.Now()
	latest, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.recordCall("GetLatestBlockhash", start, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if latest == nil || latest.Value == nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}

	payer := sender.PublicKey()
	tx, err := solana.NewTransaction(
		instructions,
		latest.Value.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &sender
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	c.logger.DebugContext(ctx, "sending transaction",
		"payer", payer.String(),
		"instructions", len(instructions),
		"blockhash", latest.Value.Blockhash.String(),
	)

	start = time.Now()
	sig, err := c.rpc.SendTransaction(ctx, tx)
	c.recordCall("SendTransaction", start, err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}
