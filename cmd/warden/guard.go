package main

import (
	"fmt"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
	"github.com/spf13/cobra"
)

var guardRetries int

func init() {
	guardCmd.Flags().IntVar(&guardRetries, "retries", 0, "retry this many times while the session check is unavailable")
}

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Check the stored session the way admin pages do",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		guard := service.NewSessionGuard(a.creds, a.client,
			service.WithEvents(a.events),
			service.WithMessages(a.catalog),
			service.WithGuardLogger(logger),
		)
		defer guard.Unmount()

		s, cleanup := startSpinner("Checking session...")
		state := guard.Mount(cmd.Context())
		for i := 0; i < guardRetries && state == core.GuardUnavailable; i++ {
			state = guard.Retry(cmd.Context())
		}
		s.FinalMSG = renderView(guard.Render())
		cleanup()

		fmt.Fprintln(cmd.OutOrStdout(), state)
		if state != core.GuardAuthenticated {
			return errSilent
		}
		return nil
	},
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Check whether the instance has been initiated",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gate := service.NewInitiationGate(a.client, service.WithGuardLogger(logger))
		defer gate.Unmount()

		s, cleanup := startSpinner("Checking instance status...")
		state := gate.Mount(cmd.Context())
		s.FinalMSG = renderView(gate.Render())
		if gate.Err() != nil {
			s.FinalMSG += hintMsg("Status could not be read; public pages stay open")
		}
		cleanup()

		fmt.Fprintln(cmd.OutOrStdout(), state)
		return nil
	},
}

func renderView(v core.View) string {
	switch v.Kind {
	case core.ViewChildren:
		return okMsg("Access granted")
	case core.ViewRedirect:
		return failMsg("Redirecting", nil) + hintMsg(v.Target)
	case core.ViewRetry:
		return failMsg(v.Message, nil) + hintMsg("Run again with --retries to check again")
	default:
		return hintMsg("Still checking")
	}
}
