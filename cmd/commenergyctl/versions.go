package main

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	versionsvc "commenergy-backend/internal/application/versions"
	"commenergy-backend/internal/domain"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect the sharing versions of a community",
}

var versionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sharing versions, production first",
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
		list, err := (&versionsvc.Service{API: client}).List(ctx, sess, communityID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRODUCTION\tSHARINGS\tCREATED")
		for _, v := range sortVersions(list) {
			prod := ""
			if v.IsProductionVersion {
				prod = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", v.ID, v.Name, prod, len(v.Sharings), v.CreatedDate.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	versionsCmd.AddCommand(versionsListCmd)
}

// sortVersions puts the production version first, then the newest.
func sortVersions(list []domain.SharingVersion) []domain.SharingVersion {
	out := append([]domain.SharingVersion(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsProductionVersion != out[j].IsProductionVersion {
			return out[i].IsProductionVersion
		}
		return out[i].CreatedDate.After(out[j].CreatedDate)
	})
	return out
}
