package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/config"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Channel link topology",
		Long:  "Links are symmetric: linking A and B relays A into B and B into A.",
	}

	cmd.AddCommand(newLinkAddCmd())
	cmd.AddCommand(newLinkRemoveCmd())
	cmd.AddCommand(newLinkListCmd())
	return cmd
}

func newLinkAddCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "add <channel-a> <channel-b>",
		Short: "Link two channels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkAdd(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runLinkAdd(cmd *cobra.Command, configPath, a, b string) error {
	if a == b {
		return fmt.Errorf("cannot link channel %s to itself", a)
	}
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, cfg *config.Config, s *stores) error {
		if err := s.channels.Link(ctx, a, b); err != nil {
			return err
		}
		fmt.Fprintf(out, "Linked %s <-> %s\n", a, b)
		notifyDaemon(ctx, out, cfg, a, b)
		return nil
	})
}

func newLinkRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "remove <channel-a> <channel-b>",
		Aliases: []string{"rm"},
		Short:   "Unlink two channels",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkRemove(cmd, configPath, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runLinkRemove(cmd *cobra.Command, configPath, a, b string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, cfg *config.Config, s *stores) error {
		if err := s.channels.Unlink(ctx, a, b); err != nil {
			return err
		}
		fmt.Fprintf(out, "Unlinked %s <-> %s\n", a, b)
		notifyDaemon(ctx, out, cfg, a, b)
		return nil
	})
}

func newLinkListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list [channel-id]",
		Short: "List channel links",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID := ""
			if len(args) == 1 {
				channelID = args[0]
			}
			return runLinkList(cmd, configPath, channelID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runLinkList(cmd *cobra.Command, configPath, channelID string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, _ *config.Config, s *stores) error {
		edges, err := s.channels.Edges(ctx, channelID)
		if err != nil {
			return err
		}
		if len(edges) == 0 {
			fmt.Fprintln(out, "No links.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FROM\tTO\tFROM LANG\tTO LANG")
		for _, e := range edges {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ChannelID, e.LinkedChannelID,
				languageOrDash(ctx, s, e.ChannelID), languageOrDash(ctx, s, e.LinkedChannelID))
		}
		return w.Flush()
	})
}

func languageOrDash(ctx context.Context, s *stores, channelID string) string {
	lang, ok, err := s.channels.Language(ctx, channelID)
	if err != nil || !ok {
		return "-"
	}
	return lang
}
