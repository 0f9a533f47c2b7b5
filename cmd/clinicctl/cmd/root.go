package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/agentstate"
	"github.com/jwalitptl/clinic-booking/internal/client"
)

var errNotLoggedIn = errors.New("not logged in, run: clinicctl login")

// app is what every subcommand shares once the root command has run.
type app struct {
	cfg    Config
	logger *zap.Logger
	store  *agentstate.Store
	in     *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewRootCommand() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "clinicctl",
		Short: "Book appointments and follow new bookings of the clinic",
		Long: `clinicctl talks to the clinic booking API.

Visitors book with "clinicctl book". Operators log in once, then run
"clinicctl listen" to get a chime and a desktop notification for every new
booking. Settings come from CLINIC_* environment variables or a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.AddCommand(
		newBookCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newListenCommand(a),
		newNotificationsCommand(a),
		newBookingsCommand(a),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.StatePath == "" {
		if a.cfg.StatePath, err = agentstate.DefaultPath(); err != nil {
			return err
		}
	}
	a.store = agentstate.NewStore(a.cfg.StatePath)

	if a.cfg.Log.File == "" {
		a.cfg.Log.File = filepath.Join(filepath.Dir(a.cfg.StatePath), "clinicctl.log")
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Log.File), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if a.logger, err = newLogger(a.cfg.Log); err != nil {
		return err
	}
	a.logger = a.logger.With(zap.String("command", cmd.Name()))

	a.in = bufio.NewReader(cmd.InOrStdin())
	a.out = cmd.OutOrStdout()
	return nil
}

// publicClient is for the endpoints open to visitors.
func (a *app) publicClient() *client.Client {
	return client.New(a.cfg.APIURL, client.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}))
}

// operatorClient carries the saved access token.
func (a *app) operatorClient() (*client.Client, error) {
	st, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if st.APIToken == "" {
		return nil, errNotLoggedIn
	}
	if !st.TokenExpiresAt.IsZero() && a.now().After(st.TokenExpiresAt) {
		return nil, fmt.Errorf("session expired: %w", errNotLoggedIn)
	}
	return client.New(a.cfg.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		client.WithToken(st.APIToken),
	), nil
}

// ask prints label and reads one trimmed line.
func (a *app) ask(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
