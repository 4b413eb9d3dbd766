package commands

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"till-bot/internal/adapter/telegram"

	"github.com/spf13/cobra"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	var url string
	set := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL with Telegram",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = cfg.Telegram.WebhookURL
			}
			if url == "" {
				return errors.New("no webhook URL: pass --url or set telegram.webhook_url")
			}
			if err := botClient().SetWebhook(cmd.Context(), url, cfg.Telegram.WebhookSecret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Webhook set to %s\n", url)
			return nil
		},
	}
	set.Flags().StringVar(&url, "url", "", "public webhook URL (default telegram.webhook_url)")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := botClient().DeleteWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.Telegram.Token == "" {
			return errors.New("telegram.token (or TOKEN) is required")
		}
		return nil
	}

	cmd.AddCommand(set, del)
	return cmd
}

func botClient() *telegram.Client {
	return telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.Token, &http.Client{Timeout: 10 * time.Second}, log)
}
