//go:build !windows
// +build !windows

package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/genricoloni/versecast/internal/domain"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	_dialTimeout  = 5 * time.Second
	_replyTimeout = 2 * time.Second
)

// mpvRequest is one JSON IPC command
type mpvRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// mpvReply is a command reply; event lines carry no request_id
type mpvReply struct {
	RequestID int    `json:"request_id"`
	Error     string `json:"error"`
	Event     string `json:"event"`
}

// MPV plays projector videos in a fullscreen mpv controlled over its IPC socket
type MPV struct {
	logger *zap.Logger
	binary string
	socket string
	screen int

	// launch starts the player process; replaced in tests
	launch func(ctx context.Context, binary string, args []string) (*exec.Cmd, error)

	mu      sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	reader  *bufio.Reader
	nextID  int
	playing bool
}

// NewPlayer creates an mpv-backed video player on the projector display
func NewPlayer(logger *zap.Logger, cfg domain.Config) *MPV {
	p := &MPV{
		logger: logger,
		binary: "mpv",
		socket: filepath.Join(cfg.GetOutputDir(), "mpv.sock"),
		screen: cfg.GetProjectorDisplay(),
		launch: startProcess,
	}
	if !commandExists(p.binary) {
		logger.Warn("mpv not found, videos cannot be projected")
	}
	return p
}

// SetScreen selects the display mpv goes fullscreen on
func (p *MPV) SetScreen(index int) {
	p.mu.Lock()
	p.screen = index
	p.mu.Unlock()
}

// playerArgs starts an idle fullscreen player listening on socket
func playerArgs(socket string, screen int) []string {
	args := []string{
		"--idle=yes",
		"--force-window=no",
		"--fullscreen",
		"--no-terminal",
		"--no-osc",
		"--keep-open=yes",
		"--input-ipc-server=" + socket,
	}
	if screen >= 0 {
		args = append(args, "--fs-screen="+strconv.Itoa(screen), "--screen="+strconv.Itoa(screen))
	}
	return args
}

func loopValue(loop bool) string {
	if loop {
		return "inf"
	}
	return "no"
}

func startProcess(ctx context.Context, binary string, args []string) (*exec.Cmd, error) {
	if !commandExists(binary) {
		return nil, fmt.Errorf("%s: %w", binary, ErrToolMissing)
	}
	// the player outlives the request that started it
	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return cmd, nil
}

// Load implements domain.VideoPlayer
func (p *MPV) Load(ctx context.Context, path string, loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureRunning(ctx); err != nil {
		return err
	}
	if err := p.send(ctx, "loadfile", path, "replace"); err != nil {
		return err
	}
	if err := p.send(ctx, "set_property", "loop-file", loopValue(loop)); err != nil {
		return err
	}
	if err := p.send(ctx, "set_property", "pause", false); err != nil {
		return err
	}
	p.playing = true
	p.logger.Info("Video loaded", zap.String("path", path), zap.Bool("loop", loop))
	return nil
}

// Play implements domain.VideoPlayer
func (p *MPV) Play(ctx context.Context) error {
	return p.transport(ctx, "set_property", "pause", false)
}

// Pause implements domain.VideoPlayer
func (p *MPV) Pause(ctx context.Context) error {
	return p.transport(ctx, "set_property", "pause", true)
}

// Restart implements domain.VideoPlayer; loop-file is left as loaded
func (p *MPV) Restart(ctx context.Context) error {
	if err := p.transport(ctx, "seek", 0, "absolute"); err != nil {
		return err
	}
	return p.transport(ctx, "set_property", "pause", false)
}

// Stop implements domain.VideoPlayer
func (p *MPV) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.playing = false
	return p.send(ctx, "stop")
}

// Close quits the player process
func (p *MPV) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.conn != nil {
		err = p.send(context.Background(), "quit")
		_ = p.conn.Close()
		p.conn, p.reader = nil, nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		done := make(chan struct{})
		go func(cmd *exec.Cmd) {
			_ = cmd.Wait()
			close(done)
		}(p.cmd)
		select {
		case <-done:
		case <-time.After(_replyTimeout):
			_ = p.cmd.Process.Kill()
		}
	}
	p.cmd = nil
	p.playing = false
	_ = os.Remove(p.socket)
	return err
}

func (p *MPV) transport(ctx context.Context, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || !p.playing {
		return errors.New("no video loaded")
	}
	return p.send(ctx, args...)
}

// ensureRunning starts mpv if needed and connects to its socket; caller holds mu
func (p *MPV) ensureRunning(ctx context.Context) error {
	if p.conn != nil {
		return nil
	}
	if p.cmd == nil {
		if err := os.MkdirAll(filepath.Dir(p.socket), 0o755); err != nil {
			return fmt.Errorf("create socket dir: %w", err)
		}
		_ = os.Remove(p.socket)
		cmd, err := p.launch(ctx, p.binary, playerArgs(p.socket, p.screen))
		if err != nil {
			return err
		}
		p.cmd = cmd
	}

	deadline := time.Now().Add(_dialTimeout)
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", p.socket)
		if err == nil {
			p.conn = conn
			p.reader = bufio.NewReader(conn)
			p.logger.Debug("Connected to mpv", zap.String("socket", p.socket))
			return nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return fmt.Errorf("connect to mpv: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// send writes one command and waits for its reply; caller holds mu
func (p *MPV) send(ctx context.Context, args ...any) error {
	if p.conn == nil {
		return errors.New("mpv is not running")
	}
	p.nextID++
	req := mpvRequest{Command: args, RequestID: p.nextID}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode mpv command: %w", err)
	}

	deadline := time.Now().Add(_replyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetDeadline(deadline); err != nil {
		return err
	}
	if _, err := p.conn.Write(append(data, '\n')); err != nil {
		p.reset()
		return fmt.Errorf("write mpv command: %w", err)
	}

	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			p.reset()
			return fmt.Errorf("read mpv reply: %w", err)
		}
		var reply mpvReply
		if err := json.Unmarshal(line, &reply); err != nil {
			p.logger.Debug("Ignoring malformed mpv line", zap.ByteString("line", line))
			continue
		}
		if reply.Event != "" || reply.RequestID != req.RequestID {
			continue
		}
		if reply.Error != "success" {
			return fmt.Errorf("mpv %v: %s", args[0], reply.Error)
		}
		return nil
	}
}

// reset drops a broken connection so the next Load reconnects
func (p *MPV) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.reader = nil, nil
	p.playing = false
}
