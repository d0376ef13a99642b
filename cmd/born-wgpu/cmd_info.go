package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/born-wgpu/backend/webgpu"
	"github.com/born-ml/born-wgpu/internal/config"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "List GPU adapters",
		Args:  cobra.NoArgs,
		RunE:  infoHandler,
	}
}

func infoHandler(cmd *cobra.Command, _ []string) error {
	adapters, err := webgpu.ListAdapters()
	if err != nil {
		return err
	}

	var data [][]string
	for i, a := range adapters {
		data = append(data, []string{
			fmt.Sprint(i),
			a.Device,
			a.Vendor,
			fmt.Sprintf("%v", a.BackendType),
			fmt.Sprintf("%v", a.AdapterType),
			fmt.Sprintf("%04x:%04x", a.VendorID, a.DeviceID),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"ORDINAL", "DEVICE", "VENDOR", "BACKEND", "TYPE", "ID"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Show the configuration after applying BORN_WGPU_CONFIG and BORN_WGPU_* environment variables.",
		Args:  cobra.NoArgs,
		RunE:  configHandler,
	}
}

func configHandler(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	data := [][]string{
		{"adapter.power_preference", cfg.Adapter.PowerPreference},
		{"dispatch.grid_policy", cfg.Dispatch.GridPolicy},
		{"dispatch.fixed_workgroups", fmt.Sprint(cfg.Dispatch.FixedWorkgroups)},
		{"dispatch.max_workgroups", fmt.Sprint(cfg.Dispatch.MaxWorkgroups)},
		{"dispatch.synchronous", fmt.Sprint(cfg.Dispatch.Synchronous)},
		{"timeouts.submit", cfg.Timeouts.Submit.Round(time.Millisecond).String()},
		{"timeouts.map", cfg.Timeouts.Map.Round(time.Millisecond).String()},
		{"logging.verbosity", fmt.Sprint(cfg.Logging.Verbosity)},
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"KEY", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func newCapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "caps",
		Short: "Show which dtypes each operation supports",
		Args:  cobra.NoArgs,
		RunE:  capsHandler,
	}
}

func capsHandler(cmd *cobra.Command, _ []string) error {
	var data [][]string
	for _, c := range webgpu.Capabilities() {
		names := make([]string, len(c.DTypes))
		for i, dt := range c.DTypes {
			names[i] = dt.String()
		}
		dtypes := strings.Join(names, ",")
		if dtypes == "" {
			dtypes = "-"
		}
		data = append(data, []string{c.Op, dtypes})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"OPERATION", "DTYPES"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}
