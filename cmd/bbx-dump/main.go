package main

/*
bbx-dump decodes one session of a flight-controller blackbox log and
writes its frames as CSV, or lists the sessions and comment preamble
found in the file.
*/

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"v.io/x/lib/vlog"

	"github.com/skybound/blackbox"
)

var (
	session = flag.Int("session", 1, "1-based session index to dump")
	list    = flag.Bool("list", false, "list session count and comment preamble, then exit")
	out     = flag.String("out", "", "output CSV path; default stdout")
)

func bbxDumpUsage() {
	fmt.Printf("Usage: %s [OPTIONS] path\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bbxDumpUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	if len(allArgs) != 1 {
		log.Fatalf("Missing positional argument (path required); please check flag syntax: '%s'", strings.Join(allArgs, " "))
	}
	path := allArgs[0]

	h, err := blackbox.Open(path)
	if err != nil {
		log.Panicf("%v", err)
	}
	defer h.Close()
	vlog.Infof("opened %s: %d session(s)", path, h.SessionCount())

	if *list {
		for _, c := range h.Comments() {
			fmt.Println("# " + c)
		}
		fmt.Printf("%d session(s)\n", h.SessionCount())
		log.Debug.Printf("exiting")
		return
	}

	sv, err := h.Select(*session)
	if err != nil {
		log.Panicf("%v", err)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Panicf("%v", err)
		}
		defer f.Close()
		w = f
	}
	if err := dumpCSV(w, sv); err != nil {
		log.Panicf("%v", err)
	}

	read, invalid, skipped := sv.Stats()
	vlog.Infof("frames: read=%d invalid=%d skipped=%d", read, invalid, skipped)
	log.Debug.Printf("exiting")
}

func dumpCSV(w *os.File, sv *blackbox.SessionView) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	names := sv.FieldNames()
	if err := cw.Write(names); err != nil {
		return err
	}

	row := make([]string, len(names))
	it := sv.Frames()
	for it.Scan() {
		fr := it.Frame()
		for i := range names {
			if i < len(fr.Cells) {
				row[i] = fr.Cells[i].String()
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}
