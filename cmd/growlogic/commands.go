package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/command"
	"github.com/nerrad567/gray-logic-grow/internal/dispatch"
	"github.com/nerrad567/gray-logic-grow/internal/entity"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-grow/internal/schedule"
)

// parseDay parses --date in loc. Empty means today.
func parseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func newRunCmd(cfgPath func() string) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Plan one day and dispatch every entry, then exit",
		Long: `run resolves the schedule for one day, inserts the entries and dispatches
them in time order. Entries already in the past are sent immediately. It
returns when the queue is empty or on Ctrl+C (pending entries are dropped).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(cfgPath())
			if err != nil {
				return err
			}
			a, err := openApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			d, err := parseDay(day, a.loc, time.Now())
			if err != nil {
				return err
			}
			if err := a.startAPI(ctx); err != nil {
				return err
			}

			res, err := a.planner.Run(ctx, d)
			if res != nil && res.Err != nil {
				log.Warn("some requests were not scheduled", "error", res.Err)
			}
			stats := a.dispatcher.Stats()
			log.Info("run finished",
				"logged", stats.Logged,
				"logged_failed", stats.LoggedFailed,
				"dropped", stats.Dropped,
				"log_write_failures", stats.LogWriteFailures,
			)
			if errors.Is(err, context.Canceled) {
				log.Info("run cancelled")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "day to plan, YYYY-MM-DD (default today)")
	return cmd
}

func newDaemonCmd(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Plan today, then replan on schedule.plan_cron and keep dispatching",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(cfgPath())
			if err != nil {
				return err
			}
			a, err := openApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.startAPI(ctx); err != nil {
				return err
			}

			if a.mqtt != nil {
				topic := mqtt.Topics{}.GrowCommand()
				if err := a.mqtt.Subscribe(topic, byte(cfg.MQTT.QoS), a.planner.HandleCommandMessage); err != nil { //nolint:gosec // QoS validated 0-2
					return fmt.Errorf("subscribing to %s: %w", topic, err)
				}
				log.Info("listening for manual commands", "topic", topic)
			}

			at, next := a.planner.NextPlan()
			log.Info("daemon started", "version", version, "next_plan_at", at, "next_plan_day", next.Format(time.DateOnly))

			err = a.planner.Daemon(ctx)
			if errors.Is(err, context.Canceled) {
				log.Info("shutdown signal received, cleaning up")
				return nil
			}
			return err
		},
	}
}

func newPlanCmd(cfgPath func() string) *cobra.Command {
	var (
		day    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the entries the schedule resolves to, without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cfgPath())
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			d, err := parseDay(day, loc, time.Now())
			if err != nil {
				return err
			}
			reqs, err := schedule.Load(cfg.Schedule.File)
			if err != nil {
				return err
			}

			entries, resolveErr := action.NewResolver(loc).ResolveAll(reqs, d)
			sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return err
				}
			} else if err := printEntries(out, entries); err != nil {
				return err
			}
			return resolveErr
		},
	}
	cmd.Flags().StringVar(&day, "date", "", "day to plan, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func printEntries(w io.Writer, entries []action.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tCOMMAND\tACTOR\tWIRE\tMETADATA")
	for _, e := range entries {
		wire, err := command.Encode(e.Command)
		wireStr := string(wire)
		if err != nil {
			wireStr = "?"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Format(time.RFC3339), e.Command, e.Actor(), wireStr, actionlog.EncodeMetadata(e.Metadata))
	}
	return tw.Flush()
}

func newSendCmd(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "send COMMAND",
		Short: "Dispatch one command now and log it (e.g. pump_off)",
		Long: "send dispatches one command immediately and logs it with actor \"manual\".\n" +
			"Commands: " + tokenList(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := command.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w (valid: %s)", err, tokenList())
			}

			ctx := cmd.Context()
			cfg, log, err := loadConfig(cfgPath())
			if err != nil {
				return err
			}
			a, err := openApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			a.planner.Manual(tok, map[string]string{"source": "cli"})

			var out dispatch.Outcome
			if err := a.sched.Run(ctx, func(ctx context.Context, e action.Entry) {
				out = a.dispatcher.Dispatch(ctx, e)
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d log rows)\n", tok, out.State, len(out.Records))
			if out.Err != nil {
				return out.Err
			}
			return out.LogErr
		},
	}
}

func tokenList() string {
	names := make([]string, len(command.All))
	for i, t := range command.All {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func newLogCmd(cfgPath func() string) *cobra.Command {
	var (
		entityID string
		cmdName  string
		since    time.Duration
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent action log rows, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(cfgPath())
			if err != nil {
				return err
			}
			a, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			filter := actionlog.Filter{EntityID: entityID, Limit: limit}
			if cmdName != "" {
				tok, err := command.Parse(cmdName)
				if err != nil {
					return err
				}
				filter.Command = tok.String()
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			records, err := a.reader().List(ctx, filter)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&entityID, "entity", "", "only this entity")
	cmd.Flags().StringVar(&cmdName, "command", "", "only this command")
	cmd.Flags().DurationVar(&since, "since", 0, "only rows newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows (max 500)")
	return cmd
}

func printRecords(w io.Writer, records []actionlog.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tENTITY\tACTOR\tCOMMAND\tSTATUS\tMETADATA")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.EntityID, r.Actor, r.Command, r.Status,
			actionlog.EncodeMetadata(r.Metadata))
	}
	return tw.Flush()
}

func newEntitiesCmd(cfgPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List or edit the entities that receive action log rows",
	}

	// withRepo opens the store and hands the entity repository to fn.
	withRepo := func(cmd *cobra.Command, fn func(context.Context, entity.Repository) error) error {
		ctx := cmd.Context()
		cfg, log, err := loadConfig(cfgPath())
		if err != nil {
			return err
		}
		a, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(ctx, a.registry.Repository())
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepo(cmd, func(ctx context.Context, repo entity.Repository) error {
				entities, err := repo.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPOSITION\tENABLED")
				for _, e := range entities {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", e.ID, e.Name, e.Position, e.Enabled)
				}
				return tw.Flush()
			})
		},
	}

	var (
		name     string
		position int
	)
	add := &cobra.Command{
		Use:   "add ID",
		Short: "Add an entity (database source only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, repo entity.Repository) error {
				return repo.Create(ctx, &entity.Entity{ID: args[0], Name: name, Position: position, Enabled: true})
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().IntVar(&position, "position", 0, "sort position")

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove an entity; its log history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, repo entity.Repository) error {
				return repo.Delete(ctx, args[0])
			})
		},
	}

	toggle := func(use string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: strings.ToUpper(use[:1]) + use[1:] + " an entity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepo(cmd, func(ctx context.Context, repo entity.Repository) error {
					return repo.SetEnabled(ctx, args[0], enabled)
				})
			},
		}
	}

	cmd.AddCommand(list, add, remove, toggle("enable", true), toggle("disable", false))
	return cmd
}
