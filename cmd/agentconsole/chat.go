package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/agentconsole/a2a"
	"github.com/c360studio/agentconsole/client"
)

func chatCmd(a *app) *cobra.Command {
	var sessionName string

	cmd := &cobra.Command{
		Use:   "chat <agent> <message>",
		Short: "Send one message to an agent and print the streamed reply",
		Long: `Sends a message to an agent over the streamed chat protocol and waits
for the assembled reply. The agent may be given as "name" (default
namespace) or "namespace/name". If the agent cannot be reached, a
placeholder reply is printed instead of failing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, name := a2a.ResolveAgentRef(args[0])
			agent, err := a.client.GetAgent(cmd.Context(), namespace, name)
			if err != nil {
				// An unknown agent still gets a synthesized session so the
				// send path can answer with its placeholder.
				a.logger.Warn("agent lookup failed", "agent", args[0], "error", err)
				agent = &client.Agent{Name: name, Namespace: namespace}
			}

			svc := a.chatService()
			sess := svc.StartSession(cmd.Context(), *agent, sessionName)

			res := svc.SendMessage(cmd.Context(), sess.ID, args[1])
			if res.Fallback() {
				a.logger.Warn("send fell back to placeholder", "error", res.Err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionName, "session-name", "cli", "Name for a newly created session")
	return cmd
}
