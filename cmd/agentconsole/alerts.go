package main

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/c360studio/agentconsole/alerts"
	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/config"
)

func alertsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect and watch alerts from the hook service",
	}
	cmd.AddCommand(alertsListCmd(a), alertsSummaryCmd(a), alertsWatchCmd(a))
	return cmd
}

func alertsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.ListAlerts(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No alerts.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSEVERITY\tSTATUS\tHOOK\tRESOURCE\tMESSAGE")
			for _, alert := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					alert.ID, alert.Severity, alert.Status, alert.HookName,
					alert.ResourceName, alert.Message)
			}
			return w.Flush()
		},
	}
}

func alertsSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print aggregate alert counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.client.GetAlertSummary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d  Firing: %d\n", sum.Total, sum.Firing)
			for sev, n := range sum.BySeverity {
				fmt.Printf("  %s: %d\n", sev, n)
			}
			return nil
		},
	}
}

func alertsWatchCmd(a *app) *cobra.Command {
	var forward bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream alerts live until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var nc *nats.Conn
			if forward {
				if a.cfg.NATS.URL == "" {
					return fmt.Errorf("--forward requires nats.url in config")
				}
				conn, err := nats.Connect(a.cfg.NATS.URL, nats.Name(appName))
				if err != nil {
					return fmt.Errorf("connect to NATS: %w", err)
				}
				defer conn.Drain()
				nc = conn
			}

			// The forwarder is swapped when the config file reloads, so the
			// callback reads it through an atomic pointer.
			var forwarder atomic.Pointer[alerts.Forwarder]
			forwarder.Store(alerts.NewForwarder(nc, a.cfg.NATS.SubjectPrefix))

			if a.configPath != "" {
				if err := a.watchConfig(ctx, func(next *config.Config) {
					forwarder.Store(alerts.NewForwarder(nc, next.NATS.SubjectPrefix))
				}); err != nil {
					return err
				}
			}

			collection := alerts.NewCollection()
			sub, err := alerts.NewSubscriber(a.client, alerts.WithLogger(a.logger)).Subscribe(ctx,
				func(alert client.Alert) {
					collection.Upsert(alert)
					fmt.Printf("[%s] %s %s: %s (%s)\n",
						alert.Severity, alert.Status, alert.HookName, alert.Message, alert.ID)
					if err := forwarder.Load().Forward(alert); err != nil {
						a.logger.Warn("alert forward failed", "alert_id", alert.ID, "error", err)
					}
				},
				func(err error) {
					a.logger.Warn("alert stream error", "error", err)
				},
			)
			if err != nil {
				return err
			}
			defer sub.Close()

			select {
			case <-ctx.Done():
			case <-sub.Done():
			}

			sum := collection.Summary()
			fmt.Printf("\nSeen %d alerts (%d firing)\n", sum.Total, sum.Firing)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forward, "forward", false, "Republish alerts onto NATS")
	return cmd
}
