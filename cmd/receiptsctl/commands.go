package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-directory/internal/common"
	"github.com/joseph-ayodele/receipt-directory/internal/directory"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
	"github.com/joseph-ayodele/receipt-directory/internal/export"
	"github.com/joseph-ayodele/receipt-directory/internal/receipts"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	var (
		expand    []string
		expandAll bool
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show receipts grouped into year and month folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			tree, err := a.svc.ListFolders(cmd.Context(), receipts.ListFoldersRequest{UserID: a.userID, Criteria: opts.criteria()})
			if err != nil {
				return err
			}
			if tree.Count() == 0 {
				pterm.Info.Println("no receipts match the current filters")
				return nil
			}

			folders := directory.NewFolderState()
			for _, f := range expand {
				year, month, err := parseFolder(f)
				if err != nil {
					return err
				}
				if !folders.YearExpanded(year) {
					folders.ToggleYear(year)
				}
				if month != nil && !folders.MonthExpanded(year, *month) {
					folders.ToggleMonth(year, *month)
				}
			}
			if expandAll {
				expandEverything(tree, folders)
			}
			return pterm.DefaultTree.WithRoot(renderTree(tree, folders)).Render()
		},
	}
	cmd.Flags().StringSliceVarP(&expand, "expand", "e", nil, "folders to open, as YYYY or YYYY-MM (repeatable)")
	cmd.Flags().BoolVarP(&expandAll, "all", "a", false, "open every folder")
	return cmd
}

func newYearsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List the years that have receipts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			years, err := a.svc.ListYears(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			for _, y := range years {
				fmt.Println(y)
			}
			return nil
		},
	}
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download <record-id>",
		Short: "Save one record's receipt into the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			sink := export.NewDirSink(a.cfg.Export.OutputDir)
			name, err := a.svc.DownloadReceipt(cmd.Context(), a.userID, args[0], sink)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("saved %s", sink.Path(name))
			return nil
		},
	}
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var (
		folder string
		ids    []string
		name   string
	)
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Zip the receipts of a year, a month, or a selection",
		Example: `  receiptsctl archive --folder 2024
  receiptsctl archive --folder 2024-03 --name march-fuel --category fuel
  receiptsctl archive --ids 41,42,57`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope := receipts.Scope{Criteria: opts.criteria(), IDs: ids}
			if folder != "" {
				year, month, err := parseFolder(folder)
				if err != nil {
					return err
				}
				scope.Year, scope.MonthIndex = &year, month
			}

			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()

			bar := &progressBar{}
			defer bar.stop()

			sink := export.NewDirSink(a.cfg.Export.OutputDir)
			res, err := a.svc.DownloadArchive(cmd.Context(), receipts.ArchiveRequest{
				UserID:      a.userID,
				Scope:       scope,
				ArchiveName: name,
			}, sink, bar.update)
			bar.stop()
			if err != nil {
				return err
			}
			return reportArchive(res, sink)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "year (YYYY) or month (YYYY-MM) folder to archive")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "record IDs to archive; combined with the filters")
	cmd.Flags().StringVar(&name, "name", "", "archive name without extension (default derived from the folder)")
	cmd.MarkFlagsMutuallyExclusive("folder", "ids")
	cmd.MarkFlagsOneRequired("folder", "ids")
	return cmd
}

func reportArchive(res *export.ArchiveResult, sink *export.DirSink) error {
	if !res.Saved {
		pterm.Info.Println("nothing to archive in that folder")
		return nil
	}
	for _, s := range res.Skipped {
		pterm.Warning.Printfln("skipped %s: %v", s.RecordID, s.Err)
	}
	pterm.Success.Printfln("saved %s (%d receipts, %d skipped, %s)",
		sink.Path(res.Filename), len(res.Entries), len(res.Skipped), humanize.Bytes(uint64(res.Size)))
	return nil
}

// progressBar starts a pterm bar on the first update, once the job total is known.
type progressBar struct {
	bar     *pterm.ProgressbarPrinter
	current int
	stopped bool
}

func (p *progressBar) update(job entity.DownloadJob) {
	if p.stopped {
		return
	}
	if p.bar == nil {
		bar, err := pterm.DefaultProgressbar.WithTotal(job.Total).WithTitle("fetching receipts").Start()
		if err != nil {
			return
		}
		p.bar = bar
	}
	if delta := job.Current - p.current; delta > 0 {
		p.bar.Add(delta)
		p.current = job.Current
	}
	if job.Done() {
		p.stop()
	}
}

func (p *progressBar) stop() {
	p.stopped = true
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}

// parseFolder reads "2024" or "2024-03" into a year and an optional 0-based month index.
func parseFolder(s string) (int, *int, error) {
	v := common.NewValidator()
	yearPart, monthPart, hasMonth := strings.Cut(strings.TrimSpace(s), "-")
	v.Field("folder", yearPart, common.Required, common.YearFilter)
	year, _ := strconv.Atoi(yearPart)

	var month *int
	if hasMonth {
		m, err := strconv.Atoi(monthPart)
		if err != nil {
			m = -1
		}
		idx := m - 1
		v.Field("folder month", idx, common.MonthIndex)
		month = &idx
	}
	if err := v.Error(); err != nil {
		return 0, nil, err
	}
	if year == 0 {
		return 0, nil, fmt.Errorf("%w: folder %q needs a year", common.ErrValidation, s)
	}
	return year, month, nil
}
