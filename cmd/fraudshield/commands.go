package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Alias1177/FraudShield/internal/export"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/internal/web"
	"github.com/Alias1177/FraudShield/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			if msg, err := a.client.Health(cmd.Context()); err != nil {
				log.Warn().Err(err).Str("url", a.client.BaseURL()).Msg("Classification service not reachable yet")
			} else {
				log.Info().Str("url", a.client.BaseURL()).Str("message", msg).Msg("Classification service is up")
			}
			return web.NewServer(a.session, time.Local).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HTTP_ADDR)")
	return cmd
}

func (a *app) predictCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "predict [conversation]",
		Short: "Classify a conversation and add it to history",
		Long: `Classify a conversation given as arguments, read from a plain-text file
with --file, or piped on stdin with --file -.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conversation := strings.Join(args, " ")
			if file != "" {
				if len(args) > 0 {
					return errors.New("pass either a conversation or --file, not both")
				}
				text, err := a.readConversation(cmd, file)
				if err != nil {
					return err
				}
				conversation = text
			}

			rec, err := a.session.Submit(cmd.Context(), conversation)
			var writeErr *history.PersistenceWriteError
			if err != nil && !errors.As(err, &writeErr) {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prediction Result\n\n%s\n", session.FormatResult(rec.Result))
			if writeErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", writeErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the conversation from a .txt file, - for stdin")
	return cmd
}

func (a *app) readConversation(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		return a.session.ReadUpload(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return a.session.ReadUpload(f)
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage prediction history",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List predictions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records := a.session.History()
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No predictions yet.")
				return nil
			}
			for i, rec := range records {
				if limit > 0 && i == limit {
					fmt.Fprintf(out, "... %d more\n", len(records)-limit)
					break
				}
				fmt.Fprintf(out, "%s  %-9s  %7s  %s\n",
					rec.DisplayTime(time.Local), rec.Result.Label, models.Percent(rec.Result.Confidence), oneLine(rec.Conversation, 60))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n records, 0 for all")

	var output string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := a.session.Export()
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d predictions to %s\n", len(a.session.History()), output)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", export.FileName, "Destination file, - for stdout")

	importCmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append the records of a CSV export to history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			n, err := a.session.Import(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d predictions\n", n)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.AddCommand(list, exportCmd, importCmd, clearCmd)
	return cmd
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the theme preference",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				t   theme.Theme
				err error
			)
			switch {
			case len(args) == 0:
				t, err = a.session.Theme(ctx)
			case args[0] == "toggle":
				t, err = a.session.ToggleTheme(ctx)
			default:
				if t, err = theme.Parse(args[0]); err == nil {
					err = a.session.SetTheme(ctx, t)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
}

// oneLine flattens a conversation for a single list row
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
