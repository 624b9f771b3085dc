package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"strings"
	"time"
)

// wbsend pushes control datagrams at a running overlay. With arguments it
// sends each argument (or stdin line, with "-") as one datagram and exits.
// Without arguments it generates a synthetic sine-wave load to exercise the
// coalescing path, so no real sender is needed for profiling.
func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:7777", "overlay UDP address")
		ratePerSec = flag.Int("rate", 60, "synthetic datagrams per second")
		runFor     = flag.Duration("duration", 10*time.Second, "how long to run the synthetic load")
		channels   = flag.Int("channels", 4, "number of value channels the synthetic load sweeps")
	)
	flag.Parse()

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("wbsend: %v", err)
	}
	defer conn.Close()

	if flag.NArg() > 0 {
		sendArgs(conn, flag.Args())
		return
	}

	if *ratePerSec <= 0 {
		log.Fatalf("rate must be >0 (got %d)", *ratePerSec)
	}
	if *channels < 1 || *channels > 12 {
		log.Fatalf("channels must be in [1,12] (got %d)", *channels)
	}
	log.Printf("wbsend: synthetic load rate=%d/s duration=%s channels=%d -> %s",
		*ratePerSec, runFor.String(), *channels, *addr)

	ctx, cancel := context.WithTimeout(context.Background(), *runFor)
	defer cancel()

	sent, errs := generate(ctx, conn, *ratePerSec, *channels)
	log.Printf("wbsend: complete sent=%d errors=%d throughput=%.1f/sec",
		sent, errs, float64(sent)/runFor.Seconds())
}

func sendArgs(conn net.Conn, args []string) {
	for _, a := range args {
		if a == "-" {
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				send(conn, sc.Text())
			}
			continue
		}
		send(conn, a)
	}
}

func send(conn net.Conn, payload string) {
	if strings.TrimSpace(payload) == "" {
		return
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		log.Printf("wbsend: %v", err)
	}
}

// generate emits one datagram per tick, sweeping each channel with a phase-
// shifted sine so every value changes every packet.
func generate(ctx context.Context, conn net.Conn, ratePerSec, channels int) (sent, errs uint64) {
	ticker := time.NewTicker(time.Second / time.Duration(ratePerSec))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return sent, errs
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			var b strings.Builder
			b.WriteString(`{"values":[`)
			for i := 0; i < channels; i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				v := 0.5 + 0.5*math.Sin(t+float64(i)*math.Pi/4)
				fmt.Fprintf(&b, "%.4f", v)
			}
			b.WriteString(`]}`)
			if _, err := conn.Write([]byte(b.String())); err != nil {
				errs++
				continue
			}
			sent++
		}
	}
}
