package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/database/repository"
)

func newPersonasCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the persona catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSYMBOL\tTITLE\tHIDDEN")
			for _, p := range rt.cat.Personas() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.ID, p.Symbol, p.Title, rt.stores.Purposes.IsHidden(p.ID))
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <path>",
		Short: "Write the catalog as YAML for use as catalog.path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.cat.WriteFile(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d personas to %s\n", rt.cat.Len(), args[0])
			return nil
		},
	})
	return cmd
}

func newConversationsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			msgs := repository.NewMessageRepo(rt.db)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tPERSONA\tMESSAGES\tCREATED\tTITLE")
			for _, c := range rt.stores.Chat.Conversations() {
				n, err := msgs.CountByConversation(cmd.Context(), c.ID)
				if err != nil {
					return fmt.Errorf("count messages: %w", err)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.SystemPurposeID, n, c.CreatedAt.Format("2006-01-02 15:04"), c.Title)
			}
			return w.Flush()
		},
	}
}

func newHiddenCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hidden",
		Short: "Manage personas hidden from the tile picker",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Hide or show one persona tile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			id := args[0]
			if _, ok := rt.cat.Lookup(id); !ok && id != catalog.CreatorTileID {
				return fmt.Errorf("unknown persona %q", id)
			}
			if err := rt.stores.Purposes.ToggleHidden(cmd.Context(), id); err != nil {
				return err
			}
			state := "shown"
			if rt.stores.Purposes.IsHidden(id) {
				state = "hidden"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, state)
			return nil
		},
	})
	return cmd
}
