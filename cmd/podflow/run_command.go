package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podflow/internal/config"
	"podflow/internal/stepcode"
	"podflow/internal/store"
	"podflow/internal/workflow"
)

var errRunsAborted = errors.New("one or more workflow runs aborted")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		workflowID int64
		topic      string
		dryRun     bool
		jsonOut    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run active workflows once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workflowID == 0 {
				workflowID = cfg.Workflow.WorkflowID
			}
			if strings.TrimSpace(topic) == "" {
				topic = cfg.Workflow.CustomTopic
			}
			sel := workflow.Selector{WorkflowID: workflowID, TopicOverride: topic}

			if dryRun {
				return ctx.withStore(func(_ *config.Config, st *store.Store) error {
					runner := workflow.NewRunner(cfg, nil, st, nil)
					workflows, err := runner.Select(cmd.Context(), sel)
					if err != nil {
						return err
					}
					return printPlan(cmd, workflows)
				})
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			batch, err := rt.runner.RunActive(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if jsonOut {
				if err := writeJSON(cmd, batchView(batch)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderBatch(batch, shouldColorize(cmd.OutOrStdout())))
			}
			if batch.Aborted() {
				return errRunsAborted
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&workflowID, "workflow", "w", 0, "Run only this workflow id")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Topic used by C fragments when the workflow has none")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify the selected workflows without executing them")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the batch result as JSON")
	return cmd
}

type runView struct {
	RunID      string `json:"runId"`
	WorkflowID int64  `json:"workflowId"`
	Status     string `json:"status"`
	Committed  int    `json:"committed"`
	Skipped    int    `json:"skipped"`
	AbortedAt  int    `json:"abortedAt,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type batchJSON struct {
	Runs []runView `json:"runs"`
	Busy []int64   `json:"busy,omitempty"`
}

func batchView(batch workflow.BatchResult) batchJSON {
	out := batchJSON{Runs: make([]runView, 0, len(batch.Runs)), Busy: batch.Busy}
	for _, run := range batch.Runs {
		committed, skipped := run.Counts()
		view := runView{
			RunID:      run.RunID,
			WorkflowID: run.WorkflowID,
			Status:     string(run.OutputRecord.Status),
			Committed:  committed,
			Skipped:    skipped,
		}
		if run.Fatal != nil {
			view.AbortedAt = run.Fatal.Step
			view.Reason = run.Fatal.Error()
		}
		out.Runs = append(out.Runs, view)
	}
	return out
}

func renderBatch(batch workflow.BatchResult, colorize bool) string {
	if len(batch.Runs) == 0 && len(batch.Busy) == 0 {
		return "No workflows ran"
	}
	rows := make([][]string, 0, len(batch.Runs)+len(batch.Busy))
	for _, view := range batchView(batch).Runs {
		status := colorStatus(view.Status, colorize)
		rows = append(rows, []string{
			fmt.Sprintf("%d", view.WorkflowID),
			view.RunID,
			status,
			fmt.Sprintf("%d", view.Committed),
			fmt.Sprintf("%d", view.Skipped),
			view.Reason,
		})
	}
	for _, id := range batch.Busy {
		rows = append(rows, []string{fmt.Sprintf("%d", id), "", colorStatus("busy", colorize), "", "", "another process holds the workflow lock"})
	}
	return renderTable(
		[]string{"Workflow", "Run", "Status", "Committed", "Skipped", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func printPlan(cmd *cobra.Command, workflows []store.Workflow) error {
	out := cmd.OutOrStdout()
	if len(workflows) == 0 {
		fmt.Fprintln(out, "No active workflows")
		return nil
	}
	for _, wf := range workflows {
		fmt.Fprintf(out, "Workflow %d %q\n", wf.ID, wf.Title)
		fmt.Fprintln(out, renderSteps(wf.Code))
	}
	return nil
}

// renderSteps classifies every token and stops at the first fault, as a run
// would.
func renderSteps(code string) string {
	tokens := stepcode.Tokens(code)
	rows := make([][]string, 0, len(tokens))
	for i, token := range tokens {
		step, err := stepcode.NewStep(i+1, token)
		if err != nil {
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), token, "fault", err.Error()})
			break
		}
		rows = append(rows, []string{fmt.Sprintf("%d", step.Index), step.Token, step.Kind.String(), describeParams(step.Params)})
	}
	return renderTable([]string{"#", "Token", "Kind", "Parameters"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
}

func describeParams(params stepcode.Params) string {
	switch p := params.(type) {
	case stepcode.PostedList:
		return fmt.Sprintf("count=%d", p.Count)
	case stepcode.SaveOnly:
		return fmt.Sprintf("response=R%d location=L%d%s", p.ResponseRef, p.Location, titleSuffix(p.TitleRef))
	case stepcode.Synthesize:
		return fmt.Sprintf("source=L%d voice=%s save=L%d%s", p.Source, p.Voice, p.Save, titleSuffix(p.TitleRef))
	case stepcode.AudioMerge:
		sources := make([]string, 0, len(p.Sources))
		for _, id := range p.Sources {
			sources = append(sources, fmt.Sprintf("L%d", id))
		}
		return fmt.Sprintf("sources=%s save=L%d%s", strings.Join(sources, "+"), p.Save, titleSuffix(p.TitleRef))
	case stepcode.PromptChain:
		parts := make([]string, 0, len(p.Parts))
		for _, frag := range p.Parts {
			parts = append(parts, frag.Raw)
		}
		desc := "parts=" + strings.Join(parts, "+")
		if p.ModelRef > 0 {
			desc += fmt.Sprintf(" model=M%d", p.ModelRef)
		}
		if p.Save > 0 {
			desc += fmt.Sprintf(" save=L%d%s", p.Save, titleSuffix(p.TitleRef))
		}
		return desc
	default:
		return ""
	}
}

func titleSuffix(ref int) string {
	if ref <= 0 {
		return ""
	}
	return fmt.Sprintf(" title=R%d", ref)
}
