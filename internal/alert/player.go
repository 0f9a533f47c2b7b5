package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Player makes the alert audible.
type Player interface {
	Play(ctx context.Context) error
}

// CommandPlayer pipes the rendered chime into an audio command such as
// "aplay -q -" or "paplay".
type CommandPlayer struct {
	name string
	args []string
	wav  []byte
}

func NewCommandPlayer(chime Chime, name string, args ...string) *CommandPlayer {
	return &CommandPlayer{name: name, args: args, wav: chime.WAV()}
}

func (p *CommandPlayer) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = bytes.NewReader(p.wav)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("failed to play alert with %s: %w: %s", p.name, err, msg)
		}
		return fmt.Errorf("failed to play alert with %s: %w", p.name, err)
	}
	return nil
}

// BellPlayer rings the terminal bell once per tone. It is the fallback when
// no audio command is available.
type BellPlayer struct {
	out   io.Writer
	tones int
}

func NewBellPlayer(out io.Writer, chime Chime) *BellPlayer {
	return &BellPlayer{out: out, tones: len(chime.Tones)}
}

func (p *BellPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.out.Write(bytes.Repeat([]byte{'\a'}, p.tones))
	return err
}

// NewPlayer picks the audio command if it is installed and the bell
// otherwise. An empty command means the bell.
func NewPlayer(chime Chime, command []string, bell io.Writer) Player {
	if len(command) > 0 {
		if _, err := exec.LookPath(command[0]); err == nil {
			return NewCommandPlayer(chime, command[0], command[1:]...)
		}
	}
	return NewBellPlayer(bell, chime)
}
