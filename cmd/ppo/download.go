package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/ppo-client/internal/core/config"
	"github.com/mohammed-shakir/ppo-client/internal/core/executor"
	"github.com/mohammed-shakir/ppo-client/internal/core/httpclient"
	"github.com/mohammed-shakir/ppo-client/internal/core/model"
	"github.com/mohammed-shakir/ppo-client/internal/logger"
	h3mapper "github.com/mohammed-shakir/ppo-client/internal/mapper/h3"
)

type downloadOpts struct {
	genus, specificEpithet, termID string
	fromYear, toYear               int
	fromDay, toDay                 int
	bbox                           string
	limit                          int
	h3Res                          int
	counts                         bool
	endpoint                       string
	output                         string
}

func newDownloadCmd() *cobra.Command {
	var o downloadOpts
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download observations matching the given filters as CSV",
		Example: `  ppo download --genus Quercus --from-year 1979 --to-year 2004
  ppo download --bbox 44,-124,46,-122 --limit 100 --h3-res 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, o)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&o.genus, "genus", "", "Genus name, e.g. Quercus")
	fl.StringVar(&o.specificEpithet, "specific-epithet", "", "Specific epithet, e.g. alba")
	fl.StringVar(&o.termID, "term-id", "", "Plant structure presence term, e.g. obo:PPO_0002313")
	fl.IntVar(&o.fromYear, "from-year", 0, "First year (inclusive)")
	fl.IntVar(&o.toYear, "to-year", 0, "Last year (inclusive)")
	fl.IntVar(&o.fromDay, "from-day", 0, "First day of year (inclusive, 1-366)")
	fl.IntVar(&o.toDay, "to-day", 0, "Last day of year (inclusive, 1-366)")
	fl.StringVar(&o.bbox, "bbox", "", "Bounding box lat1,long1,lat2,long2 (any corner order)")
	fl.IntVar(&o.limit, "limit", 0, "Maximum number of rows")
	fl.IntVar(&o.h3Res, "h3-res", -1, "Append an h3Cell column at this resolution (0-15)")
	fl.BoolVar(&o.counts, "counts", false, "Print row counts per H3 cell instead of rows (needs --h3-res)")
	fl.StringVar(&o.endpoint, "endpoint", "", "Download endpoint (default $PPO_ENDPOINT or the public portal)")
	fl.StringVarP(&o.output, "output", "o", "", "Write CSV to this file instead of stdout")
	return cmd
}

// filterSet maps the flags that were actually set onto a filter set.
func (o downloadOpts) filterSet(cmd *cobra.Command) (model.FilterSet, error) {
	var f model.FilterSet
	changed := cmd.Flags().Changed

	if changed("genus") {
		f.Genus = model.String(o.genus)
	}
	if changed("specific-epithet") {
		f.SpecificEpithet = model.String(o.specificEpithet)
	}
	if changed("term-id") {
		f.TermID = model.String(o.termID)
	}
	if changed("from-year") {
		f.FromYear = model.Int(o.fromYear)
	}
	if changed("to-year") {
		f.ToYear = model.Int(o.toYear)
	}
	if changed("from-day") {
		f.FromDay = model.Int(o.fromDay)
	}
	if changed("to-day") {
		f.ToDay = model.Int(o.toDay)
	}
	if changed("bbox") {
		bb, err := model.ParseBBox(o.bbox)
		if err != nil {
			return model.FilterSet{}, fmt.Errorf("invalid --bbox: %w", err)
		}
		f.BBox = &bb
	}
	f.Limit = o.limit
	if err := f.Validate(); err != nil {
		return model.FilterSet{}, err
	}
	return f, nil
}

func runDownload(cmd *cobra.Command, o downloadOpts) (err error) {
	cfg := config.FromEnv()
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if !cmd.Flags().Changed("h3-res") {
		o.h3Res = cfg.H3Res
	}
	if o.counts && o.h3Res < 0 {
		return fmt.Errorf("--counts needs --h3-res")
	}

	f, err := o.filterSet(cmd)
	if err != nil {
		return err
	}

	log := newAppLogger(cfg, "cli", cmd.ErrOrStderr())
	exec, err := executor.New(log, httpclient.NewOutbound(cfg.HTTPTimeout), cfg.Endpoint)
	if err != nil {
		return err
	}

	ctx := logger.WithRequestID(cmd.Context(), "")
	tbl, err := exec.Download(ctx, f)
	if err != nil {
		return err
	}
	if tbl.NoResults {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "no results found")
		return nil
	}

	m := h3mapper.New()
	if o.h3Res >= 0 {
		if err := m.AnnotateCells(tbl, o.h3Res); err != nil {
			return fmt.Errorf("h3 annotate: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if o.output != "" {
		fh, cerr := os.Create(o.output)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := fh.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		out = fh
	}

	if o.counts {
		return writeCounts(out, m, tbl)
	}
	return tbl.WriteCSV(out)
}

func writeCounts(w io.Writer, m *h3mapper.Mapper, tbl *model.Table) error {
	counts, err := m.CellCounts(tbl)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range h3mapper.SortedCells(counts) {
		rows = append(rows, []string{c, strconv.Itoa(counts[c])})
	}
	return model.NewTable([]string{h3mapper.CellColumn, "count"}, rows).WriteCSV(w)
}
