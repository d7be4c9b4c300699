package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/config"
	"github.com/zulandar/polyglot/internal/store"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect message link records",
	}

	cmd.AddCommand(newRecordShowCmd())
	return cmd
}

func newRecordShowCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "show <message-id> [channel-id]",
		Short: "Show the link record of a message",
		Long:  "With only a message ID, looks up the record of an origin message. With a channel ID as well, the message may be the origin or any copy.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			channelID := ""
			if len(args) == 2 {
				channelID = args[1]
			}
			return runRecordShow(cmd, configPath, args[0], channelID, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func runRecordShow(cmd *cobra.Command, configPath, messageID, channelID string, asJSON bool) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, _ *config.Config, s *stores) error {
		var (
			rec *store.LinkRecord
			err error
		)
		if channelID != "" {
			rec, err = s.links.FindByCopyOrOrigin(ctx, messageID, channelID)
		} else {
			rec, err = s.links.FindByOriginID(ctx, messageID)
		}
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no link record for message %s", messageID)
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		fmt.Fprintf(out, "Origin:  %s/%s\n", rec.OriginChannelID, rec.OriginMessageID)
		fmt.Fprintf(out, "Author:  %s\n", rec.AuthorID)
		fmt.Fprintf(out, "Copies:  %d\n", len(rec.Copies))
		for _, c := range rec.Copies {
			fmt.Fprintf(out, "  %s/%s\n", c.ChannelID, c.MessageID)
		}
		return nil
	})
}
