package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/agentstate"
)

func newLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a clinic operator and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.ask("البريد الإلكتروني: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.ask("كلمة المرور: "); err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}

			c := a.publicClient()
			res, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			err = a.store.Update(func(st *agentstate.State) error {
				st.APIToken = res.AccessToken
				st.TokenExpiresAt = res.ExpiresAt
				if res.Operator != nil {
					st.OperatorID = res.Operator.ID.String()
					st.OperatorEmail = res.Operator.Email
				}
				return nil
			})
			if err != nil {
				return err
			}

			a.logger.Info("operator logged in", zap.String("email", email))
			fmt.Fprintf(a.out, "تم تسجيل الدخول حتى %s\n", res.ExpiresAt.In(a.cfg.Location()).Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&password, "password", "", "operator password (prompted when empty)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved operator session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Update(func(st *agentstate.State) error {
				st.APIToken = ""
				st.TokenExpiresAt = time.Time{}
				st.OperatorID = ""
				st.OperatorEmail = ""
				return nil
			})
		},
	}
}
