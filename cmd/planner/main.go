// Command planner solves courier routing problems from the command line.
//
//	planner solve  -i orders.csv (-c config.json | -m model) [-o out.json]
//	planner verify -i out.json
//	planner quick  -i orders.csv
//	planner batch  -d tests/ [-o tests/]
//	planner random -n 10 -n-max 50 -m scheduled [-o out.csv]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"courierplan/internal/params"
)

var errUsage = errors.New("usage")

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[planner] ")
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmds := map[string]func(context.Context, []string) error{
		"solve":  cmdSolve,
		"verify": cmdVerify,
		"quick":  cmdQuick,
		"batch":  cmdBatch,
		"random": cmdRandom,
	}
	run, ok := cmds[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	err := run(ctx, os.Args[2:])
	var ce *params.ConfigError
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		if err != errUsage && err != flag.ErrHelp {
			log.Printf("%s: %v", os.Args[1], err)
		}
		os.Exit(2)
	case errors.As(err, &ce):
		log.Printf("configuration error: %v", err)
		os.Exit(3)
	default:
		log.Printf("%s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: planner <solve|verify|quick|batch|random> [flags]")
	fmt.Fprintln(os.Stderr, "model types:", params.ModeNames())
}
