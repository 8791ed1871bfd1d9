// Command cardid reads MIFARE Ultralight family cards from a PC/SC reader
// and identifies the transit system they belong to.
//
//	cardid read --reader 0 --out dump.json [--trace]
//	cardid classify dump.json
//	cardid keyhash --salt metrodroid --key FFFFFFFFFFFF 78c737fc...
package main

import (
	"os"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger()

type readCmd struct {
	Reader int    `arg:"--reader,-r" default:"0" help:"index of the PC/SC reader to use"`
	Out    string `arg:"--out,-o" help:"write the dump as JSON to this file"`
	Trace  bool   `arg:"--trace" help:"print a report of every page read to stderr"`
}

type classifyCmd struct {
	File string `arg:"positional,required" help:"JSON dump written by read"`
}

type keyhashCmd struct {
	Salt    string   `arg:"--salt,-s,required" help:"salt mixed around the key"`
	Key     string   `arg:"--key,-k,required" help:"key bytes as hex"`
	Digests []string `arg:"positional" help:"candidate MD5 digests, lower case hex"`
}

var args struct {
	Read     *readCmd     `arg:"subcommand:read" help:"dump the card on a reader"`
	Classify *classifyCmd `arg:"subcommand:classify" help:"identify a saved dump"`
	Keyhash  *keyhashCmd  `arg:"subcommand:keyhash" help:"look up a key among known digests"`
	LogLevel string       `arg:"--log-level,env:LOG_LEVEL" default:"info" help:"logrus level"`
}

func main() {
	p := arg.MustParse(&args)
	setLogLevel(args.LogLevel)

	var err error
	switch {
	case args.Read != nil:
		err = runRead(args.Read, os.Stdout)
	case args.Classify != nil:
		err = runClassify(args.Classify, os.Stdout)
	case args.Keyhash != nil:
		err = runKeyhash(args.Keyhash, os.Stdout)
	default:
		p.Fail("missing subcommand")
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func setLogLevel(level string) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Fatalf("failed to parse log level: %v", err)
	}
	logger.SetLevel(l)
}
