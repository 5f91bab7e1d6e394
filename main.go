package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ppg-heartrate/utils"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

const usage = "Expected 'serve', 'listen' or 'simulate' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "Protocol to use (http or https)")
		port := serveCmd.String("p", utils.GetEnv("PORT", "5000"), "Port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)
	case "listen":
		listenCmd := flag.NewFlagSet("listen", flag.ExitOnError)
		natsURL := listenCmd.String("nats", utils.GetEnv("PPG_NATS_URL", "nats://127.0.0.1:4222"), "NATS server URL")
		frames := listenCmd.String("frames", utils.GetEnv("PPG_FRAME_SUBJECT", "ppg.frames"), "Subject carrying camera frames")
		results := listenCmd.String("results", utils.GetEnv("PPG_RESULT_SUBJECT", "ppg.results"), "Subject receiving results")
		sessions := listenCmd.Int("n", 0, "Number of sessions to run (0 runs until interrupted)")
		listenCmd.Parse(os.Args[2:])
		listen(*natsURL, *frames, *results, *sessions)
	case "simulate":
		simCmd := flag.NewFlagSet("simulate", flag.ExitOnError)
		var opts simulateOptions
		simCmd.Float64Var(&opts.BPM, "bpm", 72, "Heart rate of the synthetic trace")
		simCmd.Float64Var(&opts.Seconds, "seconds", 0, "Measurement duration (0 keeps the configured one)")
		simCmd.Float64Var(&opts.Noise, "noise", 0, "Relative noise level")
		simCmd.Float64Var(&opts.Artifacts, "artifacts", 0, "Per-sample motion artifact probability")
		simCmd.Int64Var(&opts.Seed, "seed", 1, "Generator seed")
		simCmd.BoolVar(&opts.Live, "live", false, "Run through a paced live session")
		simCmd.Parse(os.Args[2:])
		if err := simulate(opts); err != nil {
			logger := utils.GetLogger()
			err := xerrors.New(err)
			logger.ErrorContext(context.Background(), "simulation failed", slog.Any("error", err))
			os.Exit(1)
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}
