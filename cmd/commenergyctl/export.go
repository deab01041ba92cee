package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	commsvc "commenergy-backend/internal/application/communities"
	exportsvc "commenergy-backend/internal/application/export"
	sharingsvc "commenergy-backend/internal/application/sharing"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current sharings of a community as CSV or TXT",
	Long: `Export the sharings stored on the server (never a dashboard draft).

TXT is the coefficient file: one "code;0,xxxxxx" line per contract,
generation contract included. It fails unless the community has exactly one
generation contract.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireCommunity(); err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		sess, err := openSession(ctx, client)
		if err != nil {
			return err
		}
		svc := &exportsvc.Service{
			Rows:        &sharingsvc.Service{API: client},
			Communities: &commsvc.Service{API: client},
		}
		file, err := svc.Export(ctx, sess, communityID, exportFormat, sharingsvc.SourceOriginal)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = file.Name
		}
		if out == "-" {
			_, err = cmd.OutOrStdout().Write(file.Body)
			return err
		}
		if err := os.WriteFile(out, file.Body, 0o644); err != nil {
			return err
		}
		log.Info().Str("file", out).Int("bytes", len(file.Body)).Msg("export written")
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Clean(out))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", exportsvc.FormatCSV, "csv or txt")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", `output file ("-" for stdout, default <community>_sharings_<timestamp>.<format>)`)
}
