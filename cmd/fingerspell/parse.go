package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
)

var parseCmd = &cobra.Command{
	Use:   "parse [payload]",
	Short: "Parse tracker payloads and show which gestures they match",
	Long: `Parses a tracker payload given as argument, or one payload per line from
stdin, and reports the hands found and the lesson gestures they satisfy.

Examples:
  fingerspell parse "[320, 240, 0, ...]"
  fingerspell parse --lesson practice < payloads.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var (
	parseLesson string
	parseJSON   bool
)

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVar(&parseLesson, "lesson", gesture.PlanAlphabet, "Built-in lesson to classify against")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the parsed frame as JSON")
}

// parseReport is one parsed payload.
type parseReport struct {
	Result  string     `json:"result"`
	Hands   int        `json:"hands"`
	Trigger bool       `json:"trigger,omitempty"`
	Matches []string   `json:"matches"`
	Frame   hand.Frame `json:"frame"`
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	plan, err := gesture.Lookup(parseLesson)
	if err != nil {
		return err
	}
	bank, err := gesture.NewBank(plan, cfg.Lesson.Params())
	if err != nil {
		return err
	}
	projector := cfg.Projector()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return writeReport(out, evaluate(projector, bank, args[0]))
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := writeReport(out, evaluate(projector, bank, line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// evaluate parses raw and classifies it against every gesture of bank.
func evaluate(p hand.Projector, bank *gesture.Bank, raw string) parseReport {
	frame, result := p.ParsePayloadResult(raw)
	report := parseReport{
		Result:  result.String(),
		Hands:   frame.Hands(),
		Trigger: bank.HasTrigger() && bank.Triggered(frame),
		Matches: []string{},
		Frame:   frame,
	}
	for i := 0; i < bank.Len(); i++ {
		if bank.Classify(i, frame) {
			g, _ := bank.Gesture(i)
			report.Matches = append(report.Matches, g.Name)
		}
	}
	return report
}

func writeReport(w io.Writer, r parseReport) error {
	if parseJSON {
		return json.NewEncoder(w).Encode(r)
	}
	matches := "-"
	if len(r.Matches) > 0 {
		matches = strings.Join(r.Matches, ",")
	}
	_, err := fmt.Fprintf(w, "result=%s hands=%d trigger=%t matches=%s\n", r.Result, r.Hands, r.Trigger, matches)
	return err
}
