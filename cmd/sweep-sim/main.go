package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/sweep-simulator/core"
	"github.com/signalsfoundry/sweep-simulator/internal/broadcast"
	"github.com/signalsfoundry/sweep-simulator/internal/logging"
	"github.com/signalsfoundry/sweep-simulator/internal/observability"
	"github.com/signalsfoundry/sweep-simulator/internal/sweep"
	"github.com/signalsfoundry/sweep-simulator/model"
	"github.com/signalsfoundry/sweep-simulator/timectrl"
)

func main() {
	pattern := flag.String("pattern", "", "JSON hole pattern file; empty generates a synthetic disc")
	discRadius := flag.Float64("disc-radius", 100, "synthetic pattern: workpiece radius")
	pitch := flag.Float64("pitch", 2, "synthetic pattern: grid pitch")
	tick := flag.Duration("tick", 100*time.Millisecond, "simulation tick interval")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	active := flag.Duration("active", 0, "active-phase duration per unit (default 9.5s)")
	gap := flag.Duration("gap", 0, "resolve gap between units (default 0.5s)")
	qualifyProb := flag.Float64("qualify-prob", 0, "simulated qualify probability (default 0.995)")
	pairInterval := flag.Int("pair-interval", 0, "column interval for paired units (default 2)")
	seed := flag.Int64("seed", 0, "outcome RNG seed (0 seeds from the clock)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "init tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewSweepCollector(nil)
	if err != nil {
		log.Error(ctx, "init metrics", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics server", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
	}

	// ==== Geometry ====

	table := core.NewEntityTable()
	if *pattern != "" {
		f, err := os.Open(*pattern)
		if err != nil {
			log.Error(ctx, "open pattern", logging.String("error", err.Error()))
			os.Exit(1)
		}
		sum, err := core.LoadHolePattern(table, f)
		f.Close()
		if err != nil {
			log.Error(ctx, "load pattern", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "pattern loaded",
			logging.Int("holes", len(sum.HoleIDs)),
			logging.Int("blind", sum.Blind),
			logging.Int("tierods", sum.TieRods))
	} else {
		n, err := core.GenerateGridPattern(table, core.GridPatternConfig{
			DiscRadius: *discRadius,
			Pitch:      *pitch,
			HoleRadius: *pitch / 4,
		})
		if err != nil {
			log.Error(ctx, "generate pattern", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "pattern generated", logging.Int("holes", n))
	}

	// ==== Partition + plan ====

	entities := table.All()
	partitioner := core.NewSectorPartitioner()
	asg, err := partitioner.Assign(entities)
	if err != nil {
		log.Error(ctx, "partition", logging.String("error", err.Error()))
		os.Exit(1)
	}
	table.SetSectors(asg.Sectors)
	for _, s := range model.AllSectors {
		log.Info(ctx, "sector assigned",
			logging.String("sector", s.String()),
			logging.Int("entities", asg.Counts[s]))
	}

	plannerCfg := core.PlannerConfig{PairInterval: *pairInterval}
	planner, err := core.NewSnakePathPlanner(plannerCfg)
	if err != nil {
		log.Error(ctx, "planner config", logging.String("error", err.Error()))
		os.Exit(1)
	}
	seq, err := planner.Plan(entities, asg)
	if err != nil {
		log.Error(ctx, "plan", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "sweep planned", logging.Int("units", seq.UnitCount()))

	// ==== Clock + scheduler wiring ====

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	controller := timectrl.NewTimeController(time.Now(), *tick, mode)
	events := timectrl.NewEventScheduler(controller)
	controller.AddListener(func(time.Time) { events.RunDue() })

	bc := broadcast.New(events, broadcast.DefaultConfig(), log)
	bc.SetCollector(collector)
	bc.Register(broadcast.ConsumerFunc(func(changes []model.StatusChange) {
		for _, c := range changes {
			log.Debug(ctx, "status change",
				logging.String("entity_id", c.EntityID),
				logging.String("status", c.NewStatus.String()),
				logging.String("override", c.Override.String()))
		}
	}))

	sched := sweep.NewScheduler(table, seq, events, bc, sweep.Config{
		ActiveDuration:     *active,
		ResolveGap:         *gap,
		QualifyProbability: *qualifyProb,
		Seed:               *seed,
	}, log)
	sched.SetCollector(collector)

	finished := make(chan model.RunSummary, 1)
	sched.OnComplete(func(sum model.RunSummary) { finished <- sum })

	tracer := otel.Tracer("sweep-sim")
	_, span := tracer.Start(ctx, "sweep.run")
	span.SetAttributes(
		attribute.Int("sweep.entities", table.Len()),
		attribute.Int("sweep.units", seq.UnitCount()),
	)

	if err := sched.Start(); err != nil {
		span.End()
		log.Error(ctx, "start sweep", logging.String("error", err.Error()))
		os.Exit(1)
	}

	controller.Start(0)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sum := <-finished:
		span.SetAttributes(attribute.Int("sweep.processed", sum.EntitiesProcessed))
		span.End()
		for _, s := range core.SummarizeAll(table) {
			log.Info(ctx, "sector summary",
				logging.String("sector", s.Sector.String()),
				logging.Int("qualified", s.Qualified),
				logging.Int("defective", s.Defective),
				logging.Int("blind", s.Blind),
				logging.Int("tierods", s.TieRod))
		}
		fmt.Printf("run %s: %d/%d entities processed in %s (sim time)\n",
			sum.RunID, sum.EntitiesProcessed, sum.EntitiesTotal, sum.Elapsed)
	case <-sigCh:
		// Hard stop clears every outstanding override before we exit.
		if err := sched.Stop(); err != nil {
			log.Error(ctx, "stop sweep", logging.String("error", err.Error()))
		}
		span.End()
		log.Info(ctx, "interrupted; sweep stopped cleanly")
	}
}
