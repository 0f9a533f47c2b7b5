package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// PermissionStore keeps the operator's answer between runs.
type PermissionStore interface {
	LoadPermission() (string, error)
	SavePermission(permission string) error
}

const permissionPrompt = "السماح بإشعارات سطح المكتب للحجوزات الجديدة؟ [y/N]: "

// DesktopDisplayer asks on the terminal once and shows notifications with
// notify-send.
type DesktopDisplayer struct {
	store   PermissionStore
	in      *bufio.Reader
	out     io.Writer
	appName string
	command string
	// run is replaced in tests
	run func(ctx context.Context, name string, args ...string) error

	mu sync.Mutex
}

func NewDesktopDisplayer(store PermissionStore, in io.Reader, out io.Writer) *DesktopDisplayer {
	return &DesktopDisplayer{
		store:   store,
		in:      bufio.NewReader(in),
		out:     out,
		appName: "clinicctl",
		command: "notify-send",
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (d *DesktopDisplayer) Permission() Permission {
	p, err := d.store.LoadPermission()
	if err != nil {
		return PermissionDefault
	}
	switch Permission(p) {
	case PermissionGranted, PermissionDenied:
		return Permission(p)
	default:
		return PermissionDefault
	}
}

// RequestPermission prompts only while no answer is stored. Like a browser,
// an earlier denial is returned without asking again.
func (d *DesktopDisplayer) RequestPermission(ctx context.Context) (Permission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p := d.Permission(); p != PermissionDefault {
		return p, nil
	}

	if _, err := fmt.Fprint(d.out, permissionPrompt); err != nil {
		return PermissionDefault, err
	}

	answer, err := d.readLine(ctx)
	if err != nil {
		return PermissionDefault, fmt.Errorf("failed to read answer: %w", err)
	}

	p := PermissionDenied
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "نعم":
		p = PermissionGranted
	}
	if err := d.store.SavePermission(string(p)); err != nil {
		return p, fmt.Errorf("failed to save permission: %w", err)
	}
	return p, nil
}

func (d *DesktopDisplayer) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := d.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *DesktopDisplayer) Show(ctx context.Context, n Notification) error {
	if d.Permission() != PermissionGranted {
		return ErrNotGranted
	}
	args := []string{"--app-name", d.appName, "--urgency", "normal"}
	if n.Tag != "" {
		args = append(args, "--hint", "string:x-canonical-private-synchronous:"+n.Tag)
	}
	args = append(args, n.Title, n.Body)

	if err := d.run(ctx, d.command, args...); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	return nil
}
