package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var otp string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify your email with a one-time passcode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.email == "" {
				return errors.New("--email is required")
			}
			ctx := cmd.Context()

			if a.sessions.OTPEnabled() && otp == "" {
				if err := a.sessions.SendOTP(ctx, a.email); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "OTP sent to %s\nEnter OTP: ", a.email)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read OTP: %w", err)
				}
				otp = strings.TrimSpace(line)
			}

			s, err := a.sessions.VerifyOTP(ctx, a.email, otp)
			if err != nil {
				return err
			}
			l, err := a.saveLogin(s.Email())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s until %s\n", l.Email, l.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&otp, "otp", "", "passcode from an earlier `login`; prompts when empty")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.clearLogin(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}
