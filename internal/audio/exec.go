package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// paVolumeNorm is PulseAudio's 100% volume.
const paVolumeNorm = 65536

// ExecBackend plays files by running an external player. In the command,
// {file} is replaced by the asset path, {volume} by the PulseAudio volume
// (0..65536) and {percent} by the volume in percent.
type ExecBackend struct {
	command []string
}

// NewExecBackend creates a backend for the given command template.
func NewExecBackend(command []string) *ExecBackend {
	return &ExecBackend{command: command}
}

// Acquire checks the file is readable and prepares a player process.
func (b *ExecBackend) Acquire(file string) (Resource, error) {
	if len(b.command) == 0 {
		return nil, errors.New("no player command configured")
	}
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("audio asset: %w", err)
	}
	return &execResource{command: b.command, file: file, volume: MaxVolume}, nil
}

type execResource struct {
	command []string
	file    string
	volume  float64
	cmd     *exec.Cmd
}

func (r *execResource) SetVolume(v float64) error {
	if v < 0 || v > MaxVolume {
		return fmt.Errorf("volume %.2f out of range", v)
	}
	r.volume = v
	return nil
}

func (r *execResource) Start(ctx context.Context) error {
	args := r.args()
	r.cmd = exec.CommandContext(ctx, args[0], args[1:]...)
	return r.cmd.Start()
}

func (r *execResource) Wait() error {
	if r.cmd == nil {
		return errors.New("not started")
	}
	return r.cmd.Wait()
}

// Release stops a player that is still running.
func (r *execResource) Release() error {
	if r.cmd == nil || r.cmd.Process == nil || r.cmd.ProcessState != nil {
		return nil
	}
	if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = r.cmd.Wait()
	return nil
}

func (r *execResource) args() []string {
	replacer := strings.NewReplacer(
		"{file}", r.file,
		"{volume}", strconv.Itoa(int(r.volume*paVolumeNorm)),
		"{percent}", strconv.Itoa(int(r.volume*100)),
	)
	args := make([]string, len(r.command))
	for i, a := range r.command {
		args[i] = replacer.Replace(a)
	}
	return args
}
