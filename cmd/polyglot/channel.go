package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/config"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

func newChannelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "channel",
		Aliases: []string{"ch"},
		Short:   "Channel translation settings",
	}

	cmd.AddCommand(newChannelLangCmd())
	cmd.AddCommand(newChannelUnsetCmd())
	cmd.AddCommand(newChannelShowCmd())
	return cmd
}

func newChannelLangCmd() *cobra.Command {
	var (
		configPath string
		guildID    string
	)

	cmd := &cobra.Command{
		Use:   "lang <channel-id> <language>",
		Short: "Set the language of a channel",
		Long:  "Sets the BCP 47 language (e.g. en, ja, zh-Hant) that copies relayed into the channel are translated to.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelLang(cmd, configPath, guildID, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	cmd.Flags().StringVar(&guildID, "guild", "", "guild (server) ID the channel belongs to")
	return cmd
}

// canonicalLanguage validates a language code and returns its canonical
// form and English display name.
func canonicalLanguage(code string) (string, string, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", "", fmt.Errorf("invalid language %q: %w", code, err)
	}
	if tag == language.Und {
		return "", "", fmt.Errorf("invalid language %q: undetermined", code)
	}
	return tag.String(), display.English.Tags().Name(tag), nil
}

func runChannelLang(cmd *cobra.Command, configPath, guildID, channelID, code string) error {
	lang, name, err := canonicalLanguage(code)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, cfg *config.Config, s *stores) error {
		if err := s.channels.SetLanguage(ctx, guildID, channelID, lang); err != nil {
			return err
		}
		fmt.Fprintf(out, "Channel %s language set to %s (%s)\n", channelID, lang, name)
		notifyDaemon(ctx, out, cfg, channelID)
		return nil
	})
}

func newChannelUnsetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "unset <channel-id>",
		Short: "Remove a channel's language",
		Long:  "Removes the channel's language. Messages in the channel are no longer relayed and nothing is relayed into it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelUnset(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runChannelUnset(cmd *cobra.Command, configPath, channelID string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, cfg *config.Config, s *stores) error {
		if err := s.channels.UnsetLanguage(ctx, channelID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Channel %s language removed\n", channelID)
		notifyDaemon(ctx, out, cfg, channelID)
		return nil
	})
}

func newChannelShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <channel-id>",
		Short: "Show a channel's language and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannelShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runChannelShow(cmd *cobra.Command, configPath, channelID string) error {
	out := cmd.OutOrStdout()
	return withStores(cmd, configPath, func(ctx context.Context, _ *config.Config, s *stores) error {
		lang, ok, err := s.channels.Language(ctx, channelID)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "Channel:  %s\nLanguage: %s\n", channelID, lang)
		} else {
			fmt.Fprintf(out, "Channel:  %s\nLanguage: (none)\n", channelID)
		}

		linked, _, err := s.channels.LinkedChannels(ctx, channelID)
		if err != nil {
			return err
		}
		if len(linked) == 0 {
			fmt.Fprintf(out, "Linked:   (none)\n")
			return nil
		}
		fmt.Fprintf(out, "Linked:\n")
		for _, id := range linked {
			l, ok, err := s.channels.Language(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				l = "(none)"
			}
			fmt.Fprintf(out, "  %s  %s\n", id, l)
		}
		return nil
	})
}
