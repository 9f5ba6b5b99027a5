package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

type extractOutput struct {
	Account  string `json:"account,omitempty"`
	Resolved bool   `json:"resolved"`
	URL      string `json:"url,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

func newExtractCmd() *cobra.Command {
	var (
		htmlPath   string
		netlogPath string
		account    string
		prefix     string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run extraction on a saved page and network log",
		Long: `Resolves the profile image from artifacts on disk: a page's HTML and,
optionally, a network log as Chrome performance-log JSON (array or one record
per line) or as saved by a snapshot. Prints the resolution as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := stateFrom(cmd.Context())
			if err != nil {
				return err
			}
			if prefix == "" {
				prefix = st.cfg.Extract.ImagePrefix
			}

			markup, err := os.ReadFile(htmlPath)
			if err != nil {
				return fmt.Errorf("read html: %w", err)
			}
			page := &avatar.Page{
				Account: account,
				Markup:  string(markup),
				Log:     avatar.UnsupportedLog{},
			}
			if netlogPath != "" {
				f, err := os.Open(netlogPath)
				if err != nil {
					return fmt.Errorf("open network log: %w", err)
				}
				entries, err := avatar.ParsePerformanceLog(f)
				_ = f.Close()
				if err != nil {
					return err
				}
				page.Log = entries
			}

			res, ok := avatar.New(avatar.Options{ImagePrefix: prefix}).Resolve(page)
			out := extractOutput{Account: account, Resolved: ok}
			if ok {
				out.URL = res.URL
				out.Strategy = string(res.Strategy)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "path to the saved page HTML (required)")
	cmd.Flags().StringVar(&netlogPath, "netlog", "", "path to a network log")
	cmd.Flags().StringVar(&account, "account", "", "account name echoed in the output")
	cmd.Flags().StringVar(&prefix, "prefix", "", "image URL prefix (overrides extract.image_prefix)")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}
