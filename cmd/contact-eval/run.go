package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/contact-eval/internal/bus"
	"github.com/ricesearch/contact-eval/internal/config"
	"github.com/ricesearch/contact-eval/internal/evaluation"
	"github.com/ricesearch/contact-eval/internal/pipeline"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
	"github.com/ricesearch/contact-eval/internal/pkg/logger"
	"github.com/ricesearch/contact-eval/internal/pkg/security"
	"github.com/ricesearch/contact-eval/internal/report"
	"github.com/ricesearch/contact-eval/internal/watch"
)

func runContacts(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.shape == report.ShapeStat {
		return errors.ValidationError("stat output needs a prediction file")
	}

	pairs, err := a.svc.Contacts(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.printer.Contacts(pairs, a.shape)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Evaluate(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	if a.shape == report.ShapeStat {
		return a.printer.Stat(res.Report)
	}
	return a.printer.Comparisons(res.Comparisons, a.shape)
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.svc.EvaluateMany(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}
	return printBatch(a.printer, results)
}

func printBatch(p *report.Printer, results []*pipeline.Result) error {
	paths := make([]string, len(results))
	reports := make([]*evaluation.Report, len(results))
	for i, r := range results {
		paths[i] = r.Prediction
		reports[i] = r.Report
	}
	return p.Batch(paths, reports, evaluation.Summarize(reports))
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	delay := time.Duration(a.cfg.Watch.DelayMs) * time.Millisecond
	if cmd.Flags().Changed("delay") {
		delay, _ = cmd.Flags().GetDuration("delay")
	}
	ignore, _ := cmd.Flags().GetStringSlice("ignore")

	w, err := watch.NewWatcher(watch.Config{
		Structure:    args[0],
		Dir:          args[1],
		Evaluator:    a.svc,
		BatchDelay:   delay,
		MaxPerSecond: a.cfg.Watch.MaxPerSecond,
		Ignore:       append(a.cfg.Watch.Ignore, ignore...),
		OnResults: func(results []*pipeline.Result) {
			if err := printBatch(a.printer, results); err != nil {
				a.log.WithError(err).Error("Failed to write results")
			}
		},
		Log: a.log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = w.Start(ctx)
	runs, evaluated, _ := w.Stats()
	a.log.Info("Watcher stopped", "batches", runs, "evaluated", evaluated)
	if err == context.Canceled {
		return nil
	}
	return err
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	replay, _ := cmd.Flags().GetBool("replay")
	follow, _ := cmd.Flags().GetBool("follow")
	if replay && follow {
		return errors.ValidationError("--replay and --follow cannot be combined")
	}
	// An in-memory bus lives only as long as this command, so nothing else
	// could receive replayed events or publish followed ones.
	if (replay || follow) && cfg.Bus.Type != "kafka" {
		return errors.ValidationError(fmt.Sprintf("--replay and --follow need bus.type kafka, not %s", cfg.Bus.Type)).
			WithDetail("field", "bus.type")
	}
	if follow {
		return followEvents(cmd, cfg.Bus, log)
	}

	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		path = cfg.Bus.EventLog
	}
	if path == "" {
		return errors.ValidationError("no event log: set bus.event_log or --log")
	}

	var since time.Time
	if d, _ := cmd.Flags().GetDuration("since"); d > 0 {
		since = time.Now().Add(-d)
	}
	limit, _ := cmd.Flags().GetInt("limit")

	events, err := bus.ReadEventLog(path, since, limit)
	if err != nil {
		return err
	}

	if replay {
		// Replayed events must not be appended to the log they come from.
		busCfg := cfg.Bus
		busCfg.EventLog = ""
		b, err := bus.NewBus(busCfg, log)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := bus.ReplayEvents(cmd.Context(), b, events); err != nil {
			return err
		}
		log.Info("Replayed events", "count", len(events), "brokers", security.SanitizeForLog(busCfg.KafkaBrokers))
		return nil
	}

	w := newEventWriter(cmd)
	for _, e := range events {
		if err := w.write(e); err != nil {
			return err
		}
	}
	return nil
}

// followEvents prints evaluation events published by other processes until
// interrupted.
func followEvents(cmd *cobra.Command, busCfg config.BusConfig, log *logger.Logger) error {
	busCfg.EventLog = ""
	b, err := bus.NewBus(busCfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := subscribeEvents(ctx, b, newEventWriter(cmd)); err != nil {
		return err
	}
	log.Info("Following evaluation events", "group", busCfg.KafkaGroup)
	<-ctx.Done()
	return nil
}

// subscribeEvents writes every completed and failed evaluation event seen on
// b to w.
func subscribeEvents(ctx context.Context, b bus.Bus, w *eventWriter) error {
	for _, topic := range []string{bus.TopicEvaluationCompleted, bus.TopicEvaluationFailed} {
		err := b.Subscribe(ctx, topic, func(_ context.Context, event bus.Event) error {
			return w.write(bus.LoggedEvent{Event: event, Topic: topic, Timestamp: time.UnixMilli(event.Timestamp)})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// eventWriter prints event log entries as JSON lines or tab separated
// text. It is safe for concurrent use.
type eventWriter struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
}

func newEventWriter(cmd *cobra.Command) *eventWriter {
	format, _ := cmd.Flags().GetString("format")
	return &eventWriter{out: cmd.OutOrStdout(), json: format == "json"}
}

func (w *eventWriter) write(e bus.LoggedEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.json {
		return json.NewEncoder(w.out).Encode(e)
	}
	_, err := fmt.Fprintf(w.out, "%s\t%s\t%s\t%s\n",
		e.Timestamp.Format(time.RFC3339), e.Topic, e.Event.ID, e.Event.Source)
	return err
}
