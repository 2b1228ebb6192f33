package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Oraida14/analisis-eficiencia-energetica/internal/energy"
	"github.com/Oraida14/analisis-eficiencia-energetica/internal/types"
)

var (
	energyDir    string
	energyCharts string
)

// energyCmd creates the "energia" subcommand.
func energyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "energia <site>",
		Short: "Print the energy efficiency report of a well from its bills",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnergy,
	}
	cmd.Flags().StringVar(&energyDir, "dir", "", "directory with the bill files (default energy.dir)")
	cmd.Flags().StringVar(&energyCharts, "charts", "", "also write the report charts as PNG into this directory")
	return cmd
}

func runEnergy(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	site, ok := cfg.EnergySite(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownSite, args[0])
	}
	dir := cfg.Energy.Dir
	if energyDir != "" {
		dir = energyDir
	}

	data, err := energy.Load(dir, site)
	if err != nil {
		return err
	}
	report := energy.Build(data)
	if err := report.WriteText(cmd.OutOrStdout()); err != nil {
		return err
	}
	if energyCharts == "" {
		return nil
	}

	if err := os.MkdirAll(energyCharts, 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	for _, name := range energy.Charts {
		path := filepath.Join(energyCharts, energy.FileName(site)+"_"+name+".png")
		if err := writeEnergyChart(path, name, report); err != nil {
			if errors.Is(err, energy.ErrNotEnoughData) {
				logger.Debug("chart skipped", "site", site, "chart", name)
				continue
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Chart written to %s", path)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func writeEnergyChart(path, name string, r *energy.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	if err := energy.RenderChart(f, name, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
