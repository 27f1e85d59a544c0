package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/hearth"
	"github.com/aretw0/hearth/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of records to generate")
	workers := flag.Int("workers", 16, "Concurrent writers for the counter run")
	locks := flag.Bool("locks", true, "Serialize read-modify-write per key")
	keep := flag.Bool("keep", false, "Keep the benchmark data dir after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "hearth_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	store, err := hearth.Open(ctx, benchDir,
		hearth.WithLogger(logger),
		hearth.WithKeyLocks(*locks),
	)
	if err != nil {
		panic(err)
	}

	// Run 1: sequential creates
	fmt.Printf("Creating %d records in %s...\n", *count, benchDir)
	startCreate := time.Now()
	for i := 0; i < *count; i++ {
		rec := core.Record{"n": i, "created": time.Now().UnixMilli()}
		if err := store.Create(ctx, "bench", fmt.Sprintf("rec-%06d", i), rec); err != nil {
			panic(err)
		}
	}
	createDur := time.Since(startCreate)

	// Run 2: list the collection
	startList := time.Now()
	keys, err := store.List(ctx, "bench")
	if err != nil {
		panic(err)
	}
	listDur := time.Since(startList)

	// Run 3: concurrent increments of a single record
	if err := store.Create(ctx, "bench", "counter", core.Record{"n": 0}); err != nil {
		panic(err)
	}
	perWorker := *count / *workers
	if perWorker == 0 {
		perWorker = 1
	}

	startMutate := time.Now()
	var g errgroup.Group
	for w := 0; w < *workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				err := store.Mutate(ctx, "bench", "counter", func(rec core.Record) (core.Record, error) {
					n, _ := rec["n"].(float64)
					rec["n"] = n + 1
					return rec, nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
	mutateDur := time.Since(startMutate)

	counter, err := store.Read(ctx, "bench", "counter")
	if err != nil {
		panic(err)
	}
	want := perWorker * *workers

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d records, %d workers, locks=%v):\n", *count, *workers, *locks)
	fmt.Printf("  Create: %v\n", createDur)
	fmt.Printf("  List:   %v (Items: %d)\n", listDur, len(keys))
	fmt.Printf("  Mutate: %v (Counter: %v of %d)\n", mutateDur, counter["n"], want)
	fmt.Printf("--------------------------------------------------\n")
}
