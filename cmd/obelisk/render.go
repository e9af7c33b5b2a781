package obelisk

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/manifoldco/promptui"

	"github.com/obelisk-org/obelisk"
	"github.com/obelisk-org/obelisk/networks"
	"github.com/obelisk-org/obelisk/types"
)

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	failureStyle = color.New(color.FgRed, color.Bold)
	warnStyle    = color.New(color.FgYellow)
	faintStyle   = color.New(color.Faint)
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Format.Header = text.FormatUpper

	return t
}

// confirmPrompt asks the user a yes/no question and returns their choice.
func confirmPrompt(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()

	return err == nil
}

func colorStatus(status types.DeploymentStatus) string {
	switch status {
	case types.DeploymentStatusCompleted:
		return successStyle.Sprint(status.String())
	case types.DeploymentStatusFailed:
		return failureStyle.Sprint(status.String())
	case types.DeploymentStatusCancelled:
		return warnStyle.Sprint(status.String())
	default:
		return status.String()
	}
}

func formatBatches(batches []int) string {
	if len(batches) == 0 {
		return "-"
	}

	sizes := make([]string, len(batches))
	for i, size := range batches {
		sizes[i] = strconv.Itoa(size)
	}

	return strings.Join(sizes, "+")
}

// renderResult prints the per-chain outcome table of one execution run,
// followed by the details of any failures.
func renderResult(result *obelisk.DeploymentResult, registry *networks.Registry) {
	fmt.Printf("\nexecution %s for deployment %s\n\n", result.ExecutionID, result.Root)

	chainIDs := make([]types.ChainID, 0, len(result.Reports))
	for chainID := range result.Reports {
		chainIDs = append(chainIDs, chainID)
	}
	slices.Sort(chainIDs)

	t := newTable()
	t.AppendHeader(table.Row{"Chain", "Network", "Status", "Actions", "Batches", "Txs"})
	for _, chainID := range chainIDs {
		report := result.Reports[chainID]

		var name string
		if descriptor, err := registry.Get(chainID); err == nil {
			name = descriptor.Name
		}

		if report.Skipped {
			t.AppendRow(table.Row{chainID, name, faintStyle.Sprint("skipped"), "-", "-", "-"})
			continue
		}

		t.AppendRow(table.Row{
			chainID,
			name,
			colorStatus(report.Status),
			report.ActionsExecuted,
			formatBatches(report.Batches),
			len(report.TxHashes),
		})
	}
	fmt.Println(t.Render())

	for _, chainID := range chainIDs {
		report := result.Reports[chainID]
		if report.FailedAction != nil {
			failureStyle.Printf(
				"chain %d failed at action %d (phase %s): %s\n",
				chainID, report.FailedAction.Index, report.FailedAction.Phase, report.FailedAction.Description,
			)
		}
		if report.Err != nil {
			failureStyle.Printf("chain %d: %v\n", chainID, report.Err)
		}
	}
}
