package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/agentconsole/archive"
	"github.com/c360studio/agentconsole/investigation"
)

func investigateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investigate",
		Short: "Run and inspect investigations",
	}
	cmd.AddCommand(investigateRunCmd(a), investigateHistoryCmd(a))
	return cmd
}

func investigateRunCmd(a *app) *cobra.Command {
	var (
		name   string
		agents []string
		prompt string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an investigation over an ordered agent plan",
		Long: `Starts an investigation, sends the prompt to each agent in plan order,
integrates the chat histories and completes. Findings are printed and,
when an archive path is configured, persisted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || len(agents) == 0 || prompt == "" {
				return fmt.Errorf("--name, --agents and --prompt are required")
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc := a.chatService()
			// Multi-agent runs accumulate history; keep it under the cap.
			go svc.Store().PeriodicTrim(ctx, a.cfg.Chat.TrimInterval, a.logger)
			opts := []investigation.ManagerOption{investigation.WithLogger(a.logger)}
			if a.cfg.Archive.Path != "" {
				db, err := archive.Open(a.cfg.Archive.Path)
				if err != nil {
					return fmt.Errorf("open archive: %w", err)
				}
				defer db.Close()
				if err := archive.Migrate(db); err != nil {
					return fmt.Errorf("migrate archive: %w", err)
				}
				opts = append(opts, investigation.WithArchiver(archive.NewStore(db)))
			}
			mgr := investigation.NewManager(a.client, svc, svc.Store(), opts...)

			inv, err := mgr.Start(ctx, name, "", agents)
			if err != nil {
				return err
			}
			fmt.Printf("Investigation %s started (%d steps)\n", inv.ID, len(inv.Agents))

			for {
				active := mgr.Active()
				step := active.ResolvedAgent(active.CurrentStep)
				if sess, ok := svc.Store().Session(step); ok {
					res := svc.SendMessage(ctx, sess.ID, prompt)
					fmt.Printf("\n[%d/%d] %s:\n%s\n", active.CurrentStep+1, len(active.Agents), step, res.Message)
				}
				if active.CurrentStep+1 >= len(active.Agents) {
					break
				}
				if _, err := mgr.Advance(ctx); err != nil {
					return err
				}
			}

			if _, err := mgr.IntegrateChatSessions(); err != nil {
				return err
			}
			done, err := mgr.Complete(ctx)
			if err != nil {
				return err
			}

			findings := investigation.Extract(done, svc.Store())
			printFindings(findings)
			if len(done.Substitutions) > 0 {
				fmt.Println("\nSubstituted agents:")
				for _, s := range done.Substitutions {
					fmt.Printf("  step %d: wanted %s, used %s\n", s.Step+1, s.Requested, s.Used)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Investigation name")
	cmd.Flags().StringSliceVar(&agents, "agents", nil, "Ordered agent plan (comma separated)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt sent to each agent in the plan")
	return cmd
}

func investigateHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived investigations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Archive.Path == "" {
				return fmt.Errorf("archive.path is not configured")
			}
			db, err := archive.Open(a.cfg.Archive.Path)
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			defer db.Close()
			if err := archive.Migrate(db); err != nil {
				return fmt.Errorf("migrate archive: %w", err)
			}

			recs, err := archive.NewStore(db).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No archived investigations.")
				return nil
			}

			for _, rec := range recs {
				inv := rec.Investigation
				fmt.Printf("%s  %s  [%s]  agents: %s\n",
					rec.ArchivedAt.Format("2006-01-02 15:04"),
					inv.Name, inv.Status, strings.Join(inv.Agents, ", "))
				printFindings(rec.Findings)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to list")
	return cmd
}

func printFindings(f investigation.Findings) {
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("%s:\n", title)
		for _, item := range items {
			fmt.Printf("  - %s\n", item)
		}
	}
	section("Findings", f.Findings)
	section("Recommendations", f.Recommendations)
	section("Insights", f.Insights)
}
