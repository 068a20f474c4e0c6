package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign an admin challenge and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		auth := service.NewAuthClient(a.slot, a.client,
			service.WithTranslator(a.catalog),
			service.WithSignerGrace(cfg.Signer.GracePeriod),
			service.WithAuthLogger(logger),
		)
		sessions := service.NewSessions(auth, a.creds, a.events, a.client, logger)

		var result *core.AuthResult
		if cfg.Signer.Confirm {
			// The confirmation prompt needs the terminal to itself
			result, err = sessions.Login(cmd.Context())
			fmt.Fprint(cmd.ErrOrStderr(), loginMessage(result, err))
		} else {
			s, cleanup := startSpinner("Waiting for signer and backend...")
			result, err = sessions.Login(cmd.Context())
			s.FinalMSG = loginMessage(result, err)
			cleanup()
		}
		if err != nil {
			return errSilent
		}
		return nil
	},
}

func loginMessage(result *core.AuthResult, err error) string {
	var authErr *core.AuthError
	switch {
	case err == nil:
		msg := okMsg("Logged in as " + color.YellowString(displayKey(result.Admin.Pubkey)))
		if result.IsNew {
			msg += hintMsg("This key is now the instance administrator")
		}
		return msg
	case errors.Is(err, core.ErrNoSignerAvailable):
		return failMsg("No signer available", nil) +
			hintMsg("Set "+color.YellowString("signer.secret_key")+" in your config")
	case errors.Is(err, core.ErrUserRejected):
		return failMsg("Signing was declined", nil)
	case errors.As(err, &authErr):
		return failMsg(authErr.Message, nil) + hintMsg("Run "+color.YellowString("warden login")+" to try again")
	default:
		return failMsg("Login failed", err)
	}
}

// displayKey prefers the npub form, falling back to hex
func displayKey(pubkey string) string {
	npub, err := core.EncodeNpub(pubkey)
	if err != nil {
		return pubkey
	}
	return npub
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sessions := service.NewSessions(nil, a.creds, a.events, a.client, logger)
		if err := sessions.Logout(cmd.Context()); err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), failMsg("Logout failed", err))
			return errSilent
		}
		fmt.Fprint(cmd.OutOrStdout(), okMsg("Logged out"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored admin identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		cred, err := a.creds.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load credential: %w", err)
		}
		if cred == nil {
			fmt.Fprint(cmd.OutOrStdout(), failMsg("Not logged in", nil))
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "npub:   %s\n", displayKey(cred.Pubkey))
		fmt.Fprintf(out, "pubkey: %s\n", cred.Pubkey)
		if a.local != nil && a.local.PublicKey() != cred.Pubkey {
			fmt.Fprint(out, hintMsg("The configured signer key differs from the stored session"))
		}
		return nil
	},
}
