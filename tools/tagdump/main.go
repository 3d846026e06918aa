// Package main provides a debug dump of the record tree embedded in
// QuickRoute files. It walks the tag/length/value stream without fully
// decoding it, which makes it usable on corrupt or unknown inputs.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"quickroute/internal/jpeg"
	"quickroute/internal/qrt"
)

type tagStats struct {
	count int
	bytes int
}

func main() {
	inPath := flag.String("input", "", "Input file: JPEG or raw payload (default: stdin)")
	showStats := flag.Bool("stats", false, "Aggregate tag histogram instead of a tree dump")
	flag.Parse()

	var r io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	// A JPEG input gets the payload pulled out first; anything else is
	// treated as an already-extracted payload.
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		payload, err := jpeg.ExtractPayload(bytes.NewReader(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error extracting payload: %v\n", err)
			os.Exit(1)
		}
		data = payload
	}

	if *showStats {
		stats := make(map[qrt.Tag]*tagStats)
		collect(data, 0, stats)
		printStats(stats, len(data))
		return
	}

	dump(data, 0, 0)
}

// dump prints one nesting level. Sessions payloads open with a uint32
// session count; Session payloads are records all the way down. Route
// payloads are packed samples, not records, so they stay opaque here.
func dump(buf []byte, base, depth int) {
	indent := strings.Repeat("  ", depth)
	sc := qrt.NewScanner(buf, base)
	for sc.Scan() {
		rec := sc.Record()
		line := fmt.Sprintf("%s%-28s offset=0x%06X length=%d", indent, rec.Tag, rec.Offset, rec.Length)
		if !rec.Tag.Known() {
			line += "  [unknown]"
		}
		if rec.Truncated() {
			line += fmt.Sprintf("  [truncated: %d bytes present]", len(rec.Payload))
		}

		switch {
		case rec.Tag == qrt.TagSessions && len(rec.Payload) >= 4:
			count := uint32(rec.Payload[0]) | uint32(rec.Payload[1])<<8 |
				uint32(rec.Payload[2])<<16 | uint32(rec.Payload[3])<<24
			fmt.Printf("%s  count=%d\n", line, count)
			dump(rec.Payload[4:], rec.Offset+9, depth+1)
		case rec.Tag == qrt.TagSession:
			fmt.Println(line)
			dump(rec.Payload, rec.Offset+5, depth+1)
		default:
			fmt.Println(line)
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Printf("%s! %v\n", indent, err)
	}
}

func collect(buf []byte, base int, stats map[qrt.Tag]*tagStats) {
	sc := qrt.NewScanner(buf, base)
	for sc.Scan() {
		rec := sc.Record()
		st := stats[rec.Tag]
		if st == nil {
			st = &tagStats{}
			stats[rec.Tag] = st
		}
		st.count++
		st.bytes += len(rec.Payload)

		switch rec.Tag {
		case qrt.TagSessions:
			if len(rec.Payload) >= 4 {
				collect(rec.Payload[4:], rec.Offset+9, stats)
			}
		case qrt.TagSession:
			collect(rec.Payload, rec.Offset+5, stats)
		}
	}
}

func printStats(stats map[qrt.Tag]*tagStats, total int) {
	tags := make([]qrt.Tag, 0, len(stats))
	for t := range stats {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if stats[tags[i]].count != stats[tags[j]].count {
			return stats[tags[i]].count > stats[tags[j]].count
		}
		return tags[i] < tags[j]
	})

	fmt.Printf("payload: %d bytes\n\n", total)
	fmt.Printf("%-28s %8s %12s\n", "TAG", "COUNT", "BYTES")
	var unknown int
	for _, t := range tags {
		st := stats[t]
		fmt.Printf("%-28s %8d %12d\n", t, st.count, st.bytes)
		if !t.Known() {
			unknown += st.count
		}
	}
	if unknown > 0 {
		fmt.Printf("\n%d unknown-tag records; run without -stats to locate them\n", unknown)
	}
}
