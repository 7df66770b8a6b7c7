package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ErrToolMissing is returned when a helper binary is not on PATH
var ErrToolMissing = errors.New("helper binary not found")

// commandExists checks if a binary exists in PATH
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// run executes binary and returns its stdout; stderr is folded into the error
func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if !commandExists(binary) {
		return nil, fmt.Errorf("%s: %w", binary, ErrToolMissing)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w (output: %s)", binary, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// cachePath names a derived file for src, changing when src is modified
func cachePath(dir, src, suffix string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	sum := sha256.Sum256([]byte(src + "\x00" + strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return filepath.Join(dir, hex.EncodeToString(sum[:12])+suffix), nil
}
