package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/store"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons [name]",
	Short: "List lessons or print one lesson plan",
	Long: `Without arguments lists the built-in lessons and those saved in the store.
With a name prints that lesson plan as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLessons,
}

func init() {
	rootCmd.AddCommand(lessonsCmd)
}

func runLessons(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	// The store is optional here; without a database only built-ins show.
	var st *store.Store
	if _, err := os.Stat(cfg.StorePath()); err == nil {
		st, err = store.New(cfg.StorePath())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	} else {
		logger.Debug("no store, showing built-in lessons", "path", cfg.StorePath())
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		plan, err := lookupPlan(st, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	plans, err := listPlans(st)
	if err != nil {
		return err
	}
	return printPlans(out, plans)
}

func lookupPlan(st *store.Store, name string) (gesture.Plan, error) {
	if st != nil {
		plan, err := st.Lessons().Plan(name)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return gesture.Plan{}, err
		}
	}
	return gesture.Lookup(name)
}

// listPlans returns the built-in plans followed by stored custom plans.
func listPlans(st *store.Store) ([]gesture.Plan, error) {
	plans := gesture.Plans()
	if st == nil {
		return plans, nil
	}

	lessons, err := st.Lessons().List()
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		if l.Builtin {
			continue
		}
		plan, err := st.Lessons().Plan(l.Name)
		if err != nil {
			return nil, fmt.Errorf("load lesson %s: %w", l.Name, err)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func printPlans(w io.Writer, plans []gesture.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tGESTURES\tHOLD\tFEEDBACK\tTRIGGER\tDESCRIPTION")
	for _, p := range plans {
		trigger := "no"
		if p.Trigger != nil {
			trigger = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			p.Name, len(p.Gestures), p.Timing.Hold, p.Timing.Feedback, trigger, p.Description)
	}
	return tw.Flush()
}
