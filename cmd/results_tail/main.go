package main

import (
	"encoding/json"
	"flag"
	"log"
	"strings"

	"github.com/nats-io/nats.go"

	"ppg-heartrate/models"
	"ppg-heartrate/stream"
)

// Prints every result, pending indication and failure published by the
// listen command.
func main() {

	var (
		natsURL = flag.String("nats", "nats://127.0.0.1:4222", "NATS url")
		subject = flag.String("subject", "ppg.results", "result subject")
	)
	flag.Parse()

	nc, err := stream.Connect(*natsURL)
	if err != nil {
		log.Fatal(err)
	}
	defer nc.Drain()

	handler := func(msg *nats.Msg) {
		switch {
		case strings.HasSuffix(msg.Subject, ".pending"):
			var p models.Progress
			if err := json.Unmarshal(msg.Data, &p); err == nil {
				log.Printf("[%s] processing...", p.SessionID)
			}
		case strings.HasSuffix(msg.Subject, ".error"):
			var f models.Failure
			if err := json.Unmarshal(msg.Data, &f); err == nil {
				log.Printf("[%s] %s: %s", f.SessionID, f.Reason, f.Message)
			}
		default:
			var r models.Result
			if err := json.Unmarshal(msg.Data, &r); err != nil {
				log.Printf("undecodable result on %s: %v", msg.Subject, err)
				return
			}
			line := ""
			if r.Wellness != nil {
				line = " (" + r.Wellness.Label + ")"
			}
			log.Printf("[%s] %d BPM%s mode=%s snr=%.2f lowConfidence=%v",
				r.SessionID, r.BPM, line, r.Mode, r.SNR, r.LowConfidence)
		}
	}

	for _, s := range []string{*subject, *subject + ".pending", *subject + ".error"} {
		if _, err := nc.Subscribe(s, handler); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("tailing %s...", *subject)
	select {}
}
