package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// splitHookRef splits "namespace/name", defaulting the namespace.
func splitHookRef(ref string) (namespace, name string) {
	if ns, n, ok := strings.Cut(ref, "/"); ok && ns != "" && n != "" {
		return ns, n
	}
	return "default", ref
}

func hooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage alert hooks on the hook service",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			hooks, err := a.client.ListHooks(cmd.Context())
			if err != nil {
				return err
			}
			if len(hooks) == 0 {
				fmt.Println("No hooks.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAMESPACE\tNAME\tEVENTS\tACTIVE")
			for _, h := range hooks {
				events := make([]string, 0, len(h.EventConfigurations))
				for _, ec := range h.EventConfigurations {
					events = append(events, ec.EventType)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					h.Namespace, h.Name,
					strings.Join(events, ","),
					strings.Join(h.Status.ActiveEvents, ","))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <hook>",
		Short: "Delete a hook (name or namespace/name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, name := splitHookRef(args[0])
			if err := a.client.DeleteHook(cmd.Context(), namespace, name); err != nil {
				return err
			}
			fmt.Printf("Deleted hook %s/%s\n", namespace, name)
			return nil
		},
	})

	return cmd
}
