package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

var execCommandContext = exec.CommandContext

// ProcessHandle plays a source by running an external player (ffplay, mpv) with the URL as
// its last argument. Play blocks until the process exits; Pause kills it.
type ProcessHandle struct {
	name string
	args []string

	mu     sync.Mutex
	src    string
	cmd    *exec.Cmd
	killed bool
}

func NewProcessHandle(name string, args ...string) *ProcessHandle {
	return &ProcessHandle{name: name, args: args}
}

func (h *ProcessHandle) SetSource(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.src = url
}

func (h *ProcessHandle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.src
}

func (h *ProcessHandle) Play(ctx context.Context) error {
	h.mu.Lock()
	if h.cmd != nil {
		h.mu.Unlock()
		return errors.New("already playing")
	}
	if h.src == "" {
		h.mu.Unlock()
		return errors.New("no source")
	}
	args := append(append([]string{}, h.args...), h.src)
	cmd := execCommandContext(ctx, h.name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("start %s: %w", h.name, err)
	}
	h.cmd = cmd
	h.killed = false
	h.mu.Unlock()

	err := cmd.Wait()

	h.mu.Lock()
	killed := h.killed
	h.cmd = nil
	h.mu.Unlock()

	if killed || ctx.Err() != nil {
		return nil
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", h.name, err, msg)
		}
		return fmt.Errorf("%s: %w", h.name, err)
	}
	return nil
}

func (h *ProcessHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	h.killed = true
	_ = h.cmd.Process.Kill()
}

func (h *ProcessHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cmd == nil
}
