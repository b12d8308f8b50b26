package main

import (
	"fmt"
	"io"
	"os"

	"github.com/brojonat/solwallet/service/config"
	"github.com/brojonat/solwallet/service/provision"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 130
)

func main() {
	app := newApp(os.Stdin, os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.Writer, "❌  %s\n", err)
		os.Exit(exitCode(err))
	}
}

func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	return &cli.App{
		Name:  "solwallet",
		Usage: "Generate a Solana wallet and optionally fund it",
		Description: `Generates a new keypair and writes it to wallet.csv (address and base58
secret, importable into browser wallets) and keypair.json (solana-keygen format).

When --SOURCE_WALLET is given, the new wallet is funded from that keypair with
--AMOUNT lamports, or with --AMOUNT raw units of --TOKEN_MINT when a mint is set.
The funder's balance is checked before any transaction is built.`,
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags:     flags(),
		Action:    provisionAction,
		// Errors are reported once by main.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "PATH",
			Aliases: []string{"p"},
			Value:   config.DefaultOutputDir,
			Usage:   "Output directory, include trailing slash",
			EnvVars: []string{"SOLWALLET_PATH"},
		},
		&cli.Uint64Flag{
			Name:    "AMOUNT",
			Aliases: []string{"a"},
			Value:   config.DefaultAmount,
			Usage:   "Funding amount in lamports or raw SPL token units",
		},
		&cli.StringFlag{
			Name:    "SOURCE_WALLET",
			Aliases: []string{"s"},
			Usage:   "Keypair JSON file of the wallet used to fund the new wallet",
		},
		&cli.StringFlag{
			Name:    "TOKEN_MINT",
			Aliases: []string{"t"},
			Usage:   "Token mint address; funds with this SPL token instead of SOL",
		},
		&cli.UintFlag{
			Name:    "TOKEN_DECIMALS",
			Aliases: []string{"d"},
			Value:   uint(config.DefaultTokenDecimals),
			Usage:   "Number of decimals of the SPL token",
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Value:   config.DefaultRPCURL,
			Usage:   "Solana RPC URL (include the API key for premium endpoints)",
			EnvVars: []string{"SOLANA_RPC_URL"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: config.DefaultTimeout,
			Usage: "Deadline for the funding RPC calls",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   config.DefaultLogLevel,
			Usage:   "Log level for structured logs on stderr (debug, info, warn, error)",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "Publish a wallet event to this NATS server (disabled when empty)",
			EnvVars: []string{"NATS_URL"},
		},
		&cli.StringFlag{
			Name:    "pushgateway-url",
			Usage:   "Push run metrics to this Prometheus Pushgateway (disabled when empty)",
			EnvVars: []string{"PUSHGATEWAY_URL"},
		},
	}
}

// configFromCLI builds the immutable run configuration from parsed flags.
func configFromCLI(c *cli.Context) (config.Config, error) {
	mint, err := config.ParseMint(c.String("TOKEN_MINT"))
	if err != nil {
		return config.Config{}, err
	}
	decimals, err := config.ParseDecimals(c.Uint("TOKEN_DECIMALS"))
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.Config{
		OutputDir:      c.String("PATH"),
		SourceWallet:   c.String("SOURCE_WALLET"),
		Amount:         c.Uint64("AMOUNT"),
		TokenMint:      mint,
		TokenDecimals:  decimals,
		RPCURL:         c.String("rpc-url"),
		Timeout:        c.Duration("timeout"),
		NATSURL:        c.String("nats-url"),
		PushgatewayURL: c.String("pushgateway-url"),
		LogLevel:       c.String("log-level"),
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case provision.KindOf(err) == provision.KindCancelled:
		return exitCancelled
	default:
		return exitFailure
	}
}
