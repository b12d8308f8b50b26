package artifact

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brojonat/solwallet/service/keys"
	"github.com/brojonat/solwallet/service/metrics"
)

const (
	// CSVFileName holds the address and the base58 encoded secret.
	CSVFileName = "wallet.csv"

	// JSONFileName holds the solana-keygen style byte array.
	JSONFileName = "keypair.json"

	fileMode = 0o600
	dirMode  = 0o755
)

// ErrCancelled is returned when the operator declines to overwrite an
// existing artifact. Nothing is written in that case.
var ErrCancelled = errors.New("operation cancelled")

// Confirmer decides whether an existing file may be overwritten.
type Confirmer interface {
	Confirm(path string) (bool, error)
}

// StaticConfirmer answers every overwrite question the same way.
type StaticConfirmer bool

func (s StaticConfirmer) Confirm(string) (bool, error) {
	return bool(s), nil
}

// PromptConfirmer asks the operator on Out and reads the answer from In.
// Only "y" or "Y" confirms; any other answer, including EOF, declines.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func (p *PromptConfirmer) Confirm(path string) (bool, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	fmt.Fprintf(p.Out, "⚠️   %s already exists. Do you want to overwrite it? (y/n): ", path)
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// Writer persists a keypair into an output directory.
type Writer struct {
	dir       string
	confirmer Confirmer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Writer for dir. If m is nil, no metrics are recorded.
func NewWriter(dir string, confirmer Confirmer, m *metrics.Metrics, logger *slog.Logger) *Writer {
	return &Writer{
		dir:       dir,
		confirmer: confirmer,
		metrics:   m,
		logger:    logger,
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// EnsureDir creates the output directory if it does not exist.
func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.dir, dirMode); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}
	return nil
}

// WriteCSV writes the WALLET,PRIVATE KEY header and one row for kp.
func (w *Writer) WriteCSV(kp keys.Keypair, secret string) (string, error) {
	path := filepath.Join(w.dir, CSVFileName)
	err := w.write(path, "csv", func(f io.Writer) error {
		cw := csv.NewWriter(f)
		if err := cw.Write([]string{"WALLET", "PRIVATE KEY"}); err != nil {
			return err
		}
		if err := cw.Write([]string{kp.Address(), secret}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// WriteJSON writes kp as a compact JSON byte array.
func (w *Writer) WriteJSON(kp keys.Keypair) (string, error) {
	path := filepath.Join(w.dir, JSONFileName)
	err := w.write(path, "json", func(f io.Writer) error {
		data, err := json.Marshal(kp)
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// write checks for an existing file and asks the confirmer before opening
// it. The file is only truncated once the overwrite has been approved.
func (w *Writer) write(path, format string, fill func(io.Writer) error) error {
	exists, err := fileExists(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if exists {
		ok, err := w.confirmer.Confirm(path)
		if err != nil {
			return err
		}
		if !ok {
			w.logger.Info("overwrite declined", "path", path)
			return ErrCancelled
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	w.logger.Debug("artifact written", "path", path, "format", format, "overwrite", exists)
	if w.metrics != nil {
		w.metrics.RecordArtifactWritten(format)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
