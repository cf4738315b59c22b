package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/settingsadmin/internal/adapter/settingsapi"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
)

type settingsOptions struct {
	root   *rootOptions
	apiURL string
}

func (o *settingsOptions) client() (*settingsapi.Client, error) {
	if o.apiURL != "" {
		return settingsapi.New(o.apiURL), nil
	}
	cfg, err := o.root.loadConfig()
	if err != nil {
		return nil, err
	}
	return settingsapi.New(cfg.UI.APIURL), nil
}

func newSettingsCmd(root *rootOptions) *cobra.Command {
	opts := &settingsOptions{root: root}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "List, show, create, update and delete settings through the API",
		Example: `  settingsadmin settings list --page 2 --page-size 20
  settingsadmin settings create '{"theme":"dark"}'
  settingsadmin settings update 3f2a... '{"theme":"light"}'
  settingsadmin settings delete 3f2a...`,
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "settings API base URL (default: ui.api_url from config)")

	cmd.AddCommand(
		newSettingsListCmd(opts),
		newSettingsGetCmd(opts),
		newSettingsCreateCmd(opts),
		newSettingsUpdateCmd(opts),
		newSettingsDeleteCmd(opts),
	)
	return cmd
}

func newSettingsListCmd(opts *settingsOptions) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			p, err := c.ListSettings(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				return printJSON(out, p)
			}
			return printTable(out, p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", settings.DefaultPageSize, "records per page")
	return cmd
}

func newSettingsGetCmd(opts *settingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.GetSetting(cmd.Context(), args[0])
			if err != nil {
				return notFound(err, args[0])
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newSettingsCreateCmd(opts *settingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <json>",
		Short: "Create a setting from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := jsonArg(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.CreateSetting(cmd.Context(), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newSettingsUpdateCmd(opts *settingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <json>",
		Short: "Replace a setting's data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := jsonArg(args[1])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			s, err := c.UpdateSetting(cmd.Context(), args[0], data)
			if err != nil {
				return notFound(err, args[0])
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newSettingsDeleteCmd(opts *settingsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a setting (succeeds if it is already gone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.DeleteSetting(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted setting: %s\n", args[0])
			return nil
		},
	}
}

func jsonArg(s string) (json.RawMessage, error) {
	if !json.Valid([]byte(s)) {
		return nil, errors.New("argument is not valid JSON")
	}
	return json.RawMessage(s), nil
}

func notFound(err error, id string) error {
	if settingsapi.IsNotFound(err) {
		return fmt.Errorf("setting %q not found", id)
	}
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// printJSON writes v indented on a terminal and compact otherwise.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func printTable(w io.Writer, p *settings.Page) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATA")
	for _, s := range p.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Data)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d, %d of %d total\n", p.Page, len(p.Items), p.Total)
	return err
}
