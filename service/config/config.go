package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Defaults for the command-line flags.
const (
	DefaultOutputDir     = "./wallet/"
	DefaultAmount        = uint64(1_000_000)
	DefaultTokenDecimals = uint8(6)
	DefaultRPCURL        = "https://api.devnet.solana.com"
	DefaultLogLevel      = "error"
	DefaultTimeout       = 60 * time.Second
)

// Config is the immutable input of a single provisioning run. It is built
// once from flags and environment and passed by value to each step.
type Config struct {
	// Output configuration
	OutputDir string

	// Funding configuration
	SourceWallet  string            // empty: no funding
	Amount        uint64            // smallest denomination (lamports or raw token units)
	TokenMint     *solana.PublicKey // nil: native SOL transfer
	TokenDecimals uint8

	// Solana configuration
	RPCURL  string
	Timeout time.Duration

	// Optional integrations, disabled when empty
	NATSURL        string
	PushgatewayURL string

	LogLevel string
}

// Funding reports whether the run transfers funds to the new wallet.
func (c Config) Funding() bool {
	return c.SourceWallet != ""
}

// Network returns a label for the RPC endpoint, used in metrics and events.
func (c Config) Network() string {
	return EndpointLabel(c.RPCURL)
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	var errs []error

	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output directory is required"))
	}

	if c.Funding() && c.Amount == 0 {
		errs = append(errs, fmt.Errorf("amount must be greater than zero when funding"))
	}

	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("RPC URL is required"))
	} else if u, err := url.Parse(c.RPCURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid RPC URL %q", c.RPCURL))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ParseMint parses a token mint address. An empty string yields nil.
func ParseMint(s string) (*solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	mint, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %q: %w", s, err)
	}
	return &mint, nil
}

// ParseDecimals narrows a decimals flag value to the u8 the token program uses.
func ParseDecimals(v uint) (uint8, error) {
	if v > 255 {
		return 0, fmt.Errorf("token decimals must be between 0 and 255, got %d", v)
	}
	return uint8(v), nil
}

// EndpointLabel maps well-known RPC URLs to a cluster name and anything
// else to its host, so API keys in paths or queries never reach labels.
func EndpointLabel(rpcURL string) string {
	switch rpcURL {
	case rpc.MainNetBeta_RPC:
		return "mainnet"
	case rpc.DevNet_RPC:
		return "devnet"
	case rpc.TestNet_RPC:
		return "testnet"
	case rpc.LocalNet_RPC:
		return "localnet"
	}
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
