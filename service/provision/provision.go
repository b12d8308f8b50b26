package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brojonat/solwallet/service/config"
	"github.com/brojonat/solwallet/service/keys"
	"github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// ArtifactWriter persists the generated keypair.
type ArtifactWriter interface {
	EnsureDir() error
	WriteCSV(kp keys.Keypair, secret string) (string, error)
	WriteJSON(kp keys.Keypair) (string, error)
}

// Funder checks the funding source and submits the transfer.
// *solana.Client implements it.
type Funder interface {
	CheckNativeBalance(ctx context.Context, account solanago.PublicKey, required uint64) (uint64, error)
	CheckTokenBalance(ctx context.Context, owner, mint solanago.PublicKey, required uint64) (uint64, error)
	VerifyMintDecimals(ctx context.Context, mint solanago.PublicKey, decimals uint8) error
	SendNative(ctx context.Context, sender solanago.PrivateKey, recipient solanago.PublicKey, amount uint64) (solanago.Signature, error)
	SendToken(ctx context.Context, sender solanago.PrivateKey, req solana.FundingRequest) (solanago.Signature, error)
}

// Result describes what a run produced.
type Result struct {
	Address  string
	CSVPath  string
	JSONPath string
	Funding  *FundingResult // nil when no source wallet was given
}

// FundingResult describes the submitted funding transfer.
type FundingResult struct {
	Source    string
	Amount    uint64
	Mint      *solanago.PublicKey
	Signature solanago.Signature
}

// Provisioner runs the generate, persist and fund steps in order.
type Provisioner struct {
	writer    ArtifactWriter
	funder    Funder
	publisher nats.Publisher
	out       io.Writer
	logger    *slog.Logger

	generate    func() (keys.Keypair, string, error)
	loadKeypair func(path string) (keys.Keypair, error)
	now         func() time.Time
}

// New creates a Provisioner. funder may be nil when no run will fund, and
// publisher may be nil to disable event publication. Progress lines for the
// operator go to out.
func New(writer ArtifactWriter, funder Funder, publisher nats.Publisher, out io.Writer, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		writer:      writer,
		funder:      funder,
		publisher:   publisher,
		out:         out,
		logger:      logger,
		generate:    keys.Generate,
		loadKeypair: keys.LoadKeypair,
		now:         time.Now,
	}
}

// Run executes one provisioning run. Every failure is returned as *Error;
// nothing already written is rolled back.
func (p *Provisioner) Run(ctx context.Context, cfg config.Config) (*Result, error) {
	// Check the source wallet before generating anything so a typo in -s
	// does not leave fresh artifacts behind.
	if cfg.Funding() {
		if _, err := os.Stat(cfg.SourceWallet); err != nil {
			return nil, &Error{
				Kind: KindInput,
				Op:   "locating source wallet",
				Err:  fmt.Errorf("could not locate %s", cfg.SourceWallet),
			}
		}
	}

	if err := p.writer.EnsureDir(); err != nil {
		return nil, classify("creating output directory", err, KindIO)
	}

	p.printf(">>> Generating keypair...\n")
	account, secret, err := p.generate()
	if err != nil {
		return nil, classify("generating keypair", err, KindIO)
	}
	p.printf("✅  Keypair successfully generated for: %s\n", account.Address())

	result := &Result{Address: account.Address()}

	p.printf(">>> Generating CSV file...\n")
	result.CSVPath, err = p.writer.WriteCSV(account, secret)
	if err != nil {
		return nil, classify("generating CSV", err, KindIO)
	}
	p.printf("✅  CSV file generated at: %s\n", result.CSVPath)

	p.printf(">>> Generating JSON file...\n")
	result.JSONPath, err = p.writer.WriteJSON(account)
	if err != nil {
		return nil, classify("generating JSON file", err, KindIO)
	}
	p.printf("✅  JSON file generated at: %s\n", result.JSONPath)

	p.logger.InfoContext(ctx, "wallet generated",
		"address", result.Address,
		"csv", result.CSVPath,
		"json", result.JSONPath,
	)

	if cfg.Funding() {
		result.Funding, err = p.fund(ctx, cfg, account)
		if err != nil {
			return result, err
		}
	}

	p.publish(ctx, cfg, result)
	return result, nil
}

func (p *Provisioner) fund(ctx context.Context, cfg config.Config, recipient keys.Keypair) (*FundingResult, error) {
	if p.funder == nil {
		return nil, &Error{Kind: KindInput, Op: "funding", Err: errors.New("no RPC client configured")}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	p.printf(">>> Reading Keypair file...\n")
	sender, err := p.loadKeypair(cfg.SourceWallet)
	if err != nil {
		return nil, classify("loading Keypair", err, KindInput)
	}
	p.printf("✅  Keypair loaded from %s. Address -> %s\n", cfg.SourceWallet, sender.Address())

	funding := &FundingResult{
		Source: sender.Address(),
		Amount: cfg.Amount,
		Mint:   cfg.TokenMint,
	}

	if cfg.TokenMint != nil {
		funding.Signature, err = p.fundToken(ctx, cfg, sender, recipient)
	} else {
		funding.Signature, err = p.fundNative(ctx, cfg, sender, recipient)
	}
	if err != nil {
		return nil, err
	}

	p.printf("✅  Transaction sent successfully, signature: %s\n", funding.Signature)
	return funding, nil
}

func (p *Provisioner) fundNative(ctx context.Context, cfg config.Config, sender, recipient keys.Keypair) (solanago.Signature, error) {
	p.printf(">>> Checking if account %s has enough SOL... (required %s SOL)\n",
		sender.Address(), solana.FormatSOL(cfg.Amount))
	balance, err := p.funder.CheckNativeBalance(ctx, sender.PublicKey(), cfg.Amount)
	if err != nil {
		return solanago.Signature{}, classify("checking account balance", err, KindNetwork)
	}
	p.printf("✅  Account %s has sufficient balance: %s SOL.\n", sender.Address(), solana.FormatSOL(balance))

	p.printf(">>> Sending %s SOL from %s to %s...\n",
		solana.FormatSOL(cfg.Amount), sender.Address(), recipient.Address())
	sig, err := p.funder.SendNative(ctx, sender.PrivateKey(), recipient.PublicKey(), cfg.Amount)
	if err != nil {
		return solanago.Signature{}, classify("sending SOL", err, KindNetwork)
	}
	return sig, nil
}

func (p *Provisioner) fundToken(ctx context.Context, cfg config.Config, sender, recipient keys.Keypair) (solanago.Signature, error) {
	mint := *cfg.TokenMint
	uiAmount := solana.FormatTokenAmount(cfg.Amount, cfg.TokenDecimals)

	if err := p.funder.VerifyMintDecimals(ctx, mint, cfg.TokenDecimals); err != nil {
		return solanago.Signature{}, classify("checking token decimals", err, KindNetwork)
	}

	p.printf(">>> Checking if account %s has enough tokens... (required %s tokens)\n",
		sender.Address(), uiAmount)
	balance, err := p.funder.CheckTokenBalance(ctx, sender.PublicKey(), mint, cfg.Amount)
	if err != nil {
		return solanago.Signature{}, classify("checking token balance", err, KindNetwork)
	}
	p.printf("✅  Account %s has sufficient token balance: %s tokens.\n",
		sender.Address(), solana.FormatTokenAmount(balance, cfg.TokenDecimals))

	p.printf(">>> Sending %s tokens from %s to %s...\n", uiAmount, sender.Address(), recipient.Address())
	sig, err := p.funder.SendToken(ctx, sender.PrivateKey(), solana.FundingRequest{
		Recipient: recipient.PublicKey(),
		Amount:    cfg.Amount,
		Mint:      &mint,
		Decimals:  cfg.TokenDecimals,
	})
	if err != nil {
		return solanago.Signature{}, classify("sending tokens", err, KindNetwork)
	}
	return sig, nil
}

// publish announces the wallet. The run has already succeeded at this point,
// so a publish failure is logged and not returned.
func (p *Provisioner) publish(ctx context.Context, cfg config.Config, result *Result) {
	if p.publisher == nil {
		return
	}

	event := &nats.ProvisionedEvent{
		Address:   result.Address,
		CreatedAt: p.now().UTC(),
	}
	if f := result.Funding; f != nil {
		event.FundedBy = f.Source
		event.Amount = f.Amount
		event.Signature = f.Signature.String()
		event.Network = cfg.Network()
		if f.Mint != nil {
			event.TokenMint = f.Mint.String()
			event.Decimals = cfg.TokenDecimals
		}
	}

	if err := p.publisher.PublishProvisioned(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to publish provisioned event",
			"address", result.Address,
			"error", err,
		)
	}
}

func (p *Provisioner) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}
