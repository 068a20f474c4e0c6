package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
	"github.com/spf13/cobra"
)

// errSilent fails a command whose message was already printed
var errSilent = errors.New("")

var (
	rowsPage      int
	rowsPageSize  int
	insertProtect []string
)

func init() {
	rowsCmd.Flags().IntVar(&rowsPage, "page", 1, "page number")
	rowsCmd.Flags().IntVar(&rowsPageSize, "page-size", 25, "rows per page")

	insertCmd.Flags().StringSliceVarP(&insertProtect, "protect", "p", nil, "fields to encrypt to the admin key")
}

var rowsCmd = &cobra.Command{
	Use:   "rows <table>",
	Short: "Print a page of an admin table, decrypting protected fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		cred, err := a.creds.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load credential: %w", err)
		}
		if cred == nil {
			fmt.Fprint(cmd.ErrOrStderr(), failMsg("Not logged in", nil)+hintMsg("Run warden login first"))
			return errSilent
		}

		s, cleanup := startSpinner("Loading rows...")
		page, err := a.client.FetchRows(cmd.Context(), cred.SessionToken, args[0], rowsPage, rowsPageSize)
		if err != nil {
			s.FinalMSG = failMsg("Failed to load rows", err)
			cleanup()
			return errSilent
		}

		var view *service.DecryptView
		if a.local != nil {
			view = service.NewDecryptView(cmd.Context(), service.NewDecryptEngine(a.local, logger))
			defer view.Close()
			<-view.Load(page.Rows, page.Columns)
		}
		cleanup()

		printPage(cmd, page, view)
		if view == nil && hasEncryptedColumns(page.Columns) {
			fmt.Fprint(cmd.ErrOrStderr(), hintMsg("No signer configured, protected fields are shown as stored. Set "+
				color.YellowString("signer.secret_key")+" to decrypt them"))
		}
		return nil
	},
}

func printPage(cmd *cobra.Command, page *core.RowPage, view *service.DecryptView) {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	var columns []string
	for _, col := range page.Columns {
		if strings.HasPrefix(col, core.EphemeralKeyPrefix) || col == core.EphemeralKeyColumn {
			continue
		}
		columns = append(columns, col)
	}

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = strings.ToUpper(core.FieldName(col))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for i, row := range page.Rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			switch {
			case view != nil:
				cells[j] = view.Display(i, col)
			case row[col] == nil:
				cells[j] = ""
			default:
				cells[j] = fmt.Sprint(row[col])
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\npage %d, %d of %d rows\n", page.Page, len(page.Rows), page.Total)
}

func hasEncryptedColumns(columns []string) bool {
	for _, col := range columns {
		if core.IsEncryptedColumn(col) {
			return true
		}
	}
	return false
}

var insertCmd = &cobra.Command{
	Use:   "insert <table> <field=value>...",
	Short: "Add a row to an admin table",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make(map[string]string, len(args)-1)
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return fmt.Errorf("expected field=value, got %q", kv)
			}
			values[k] = v
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		cred, err := a.creds.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load credential: %w", err)
		}
		if cred == nil {
			fmt.Fprint(cmd.ErrOrStderr(), failMsg("Not logged in", nil))
			return errSilent
		}

		if err := a.client.InsertRow(cmd.Context(), cred.SessionToken, args[0], values, insertProtect); err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), failMsg("Insert failed", err))
			return errSilent
		}
		fmt.Fprint(cmd.OutOrStdout(), okMsg("Row added to "+args[0]))
		return nil
	},
}
