package main

import (
	"github.com/pevans/recipescan/api"
	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sources and news stores as a read-only JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagAddr != "" {
		cfg.APIAddr = flagAddr
	}

	src, err := openSources()
	if err != nil {
		return err
	}
	defer src.Close()

	news, err := openNews()
	if err != nil {
		return err
	}
	defer news.Close()

	return api.NewServer(src, news, logger).Start(cfg.APIAddr)
}
