package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brojonat/solwallet/service/config"
	"github.com/brojonat/solwallet/service/keys"
	"github.com/brojonat/solwallet/service/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out)
	err := app.Run(append([]string{"solwallet"}, args...))
	return out.String(), err
}

func TestProvision_NoSourceWallet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wallet") + "/"

	out, err := runApp(t, "", "-p", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	f, err := os.Open(filepath.Join(dir, "wallet.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"WALLET", "PRIVATE KEY"}, records[0])

	kp, err := keys.LoadKeypair(filepath.Join(dir, "keypair.json"))
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), records[1][0])
	assert.Equal(t, kp.EncodedSecret(), records[1][1])

	assert.Contains(t, out, "Keypair successfully generated for: "+kp.Address())
	assert.NotContains(t, out, "Reading Keypair file")
}

func TestProvision_MissingSourceWallet(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.json")

	_, err := runApp(t, "", "-p", dir, "-s", missing)
	require.Error(t, err)
	assert.Equal(t, provision.KindInput, provision.KindOf(err))
	assert.Contains(t, err.Error(), "could not locate "+missing)
	assert.Equal(t, exitFailure, exitCode(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should be generated when the source wallet is missing")
}

func TestProvision_DeclinedOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := runApp(t, "", "-p", dir)
	require.NoError(t, err)
	original, err := os.ReadFile(filepath.Join(dir, "wallet.csv"))
	require.NoError(t, err)

	out, err := runApp(t, "n\n", "-p", dir)
	require.Error(t, err)
	assert.Equal(t, provision.KindCancelled, provision.KindOf(err))
	assert.Equal(t, "Operation cancelled.", err.Error())
	assert.Equal(t, exitCancelled, exitCode(err))
	assert.Contains(t, out, "already exists. Do you want to overwrite it? (y/n):")

	after, err := os.ReadFile(filepath.Join(dir, "wallet.csv"))
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestProvision_ConfirmedOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := runApp(t, "", "-p", dir)
	require.NoError(t, err)
	first, err := keys.LoadKeypair(filepath.Join(dir, "keypair.json"))
	require.NoError(t, err)

	_, err = runApp(t, "Y\ny\n", "-p", dir)
	require.NoError(t, err)
	second, err := keys.LoadKeypair(filepath.Join(dir, "keypair.json"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Address(), second.Address())
}

func TestConfigFromCLI(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, c cliConfigResult)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, c cliConfigResult) {
				assert.Equal(t, "./wallet/", c.cfg.OutputDir)
				assert.Equal(t, uint64(1_000_000), c.cfg.Amount)
				assert.Equal(t, uint8(6), c.cfg.TokenDecimals)
				assert.Nil(t, c.cfg.TokenMint)
				assert.False(t, c.cfg.Funding())
				assert.Equal(t, "devnet", c.cfg.Network())
			},
		},
		{
			name: "token funding",
			args: []string{
				"-p", "/tmp/out/", "-a", "5000000", "-s", "/tmp/src.json",
				"-t", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "-d", "9",
			},
			check: func(t *testing.T, c cliConfigResult) {
				assert.Equal(t, "/tmp/out/", c.cfg.OutputDir)
				assert.Equal(t, uint64(5_000_000), c.cfg.Amount)
				assert.True(t, c.cfg.Funding())
				require.NotNil(t, c.cfg.TokenMint)
				assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", c.cfg.TokenMint.String())
				assert.Equal(t, uint8(9), c.cfg.TokenDecimals)
			},
		},
		{
			name:    "invalid mint",
			args:    []string{"-t", "not-a-mint"},
			wantErr: "invalid token mint",
		},
		{
			name:    "decimals out of range",
			args:    []string{"-d", "256"},
			wantErr: "token decimals must be between 0 and 255",
		},
		{
			name:    "zero amount when funding",
			args:    []string{"-s", "/tmp/src.json", "-a", "0"},
			wantErr: "amount must be greater than zero",
		},
		{
			name:    "bad log level",
			args:    []string{"--log-level", "trace"},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got cliConfigResult
			app := &cli.App{
				Name:  "solwallet",
				Flags: flags(),
				Action: func(c *cli.Context) error {
					got.cfg, got.err = configFromCLI(c)
					return nil
				},
			}

			require.NoError(t, app.Run(append([]string{"solwallet"}, tt.args...)))

			if tt.wantErr != "" {
				require.Error(t, got.err)
				assert.Contains(t, got.err.Error(), tt.wantErr)
				assert.Equal(t, exitFailure, exitCode(got.err))
				return
			}
			require.NoError(t, got.err)
			tt.check(t, got)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitCancelled, exitCode(&provision.Error{Kind: provision.KindCancelled}))
	assert.Equal(t, exitFailure, exitCode(&provision.Error{Kind: provision.KindNetwork}))
	assert.Equal(t, exitFailure, exitCode(assert.AnError))
}

type cliConfigResult struct {
	cfg config.Config
	err error
}
