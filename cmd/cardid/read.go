package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ebfe/scard"

	"github.com/gregLibert/transit-card/pkg/card"
	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/pcsc"
	"github.com/gregLibert/transit-card/pkg/ultralight"
)

// connect opens the PC/SC context and connects to the card on reader idx.
func connect(idx int) (*scard.Context, *scard.Card, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nil, fmt.Errorf("establishing context: %w", err)
	}

	release := func() {
		if err := ctx.Release(); err != nil {
			logger.Warnf("failed to release context: %v", err)
		}
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("listing readers: %w", err)
	}
	if idx < 0 || idx >= len(readers) {
		release()
		return nil, nil, fmt.Errorf("reader %d not found (%d available)", idx, len(readers))
	}

	logger.Infof("using reader: %s", readers[idx])

	// Forcing T=0|T=1 avoids "Parameter Incorrect" on some drivers.
	c, err := ctx.Connect(readers[idx], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("connecting to card: %w", err)
	}
	return ctx, c, nil
}

func runRead(cmd *readCmd, w io.Writer) error {
	ctx, sc, err := connect(cmd.Reader)
	if err != nil {
		return err
	}
	defer func() {
		if err := ctx.Release(); err != nil {
			logger.Warnf("failed to release context: %v", err)
		}
	}()
	defer func() {
		if err := sc.Disconnect(scard.LeaveCard); err != nil {
			logger.Warnf("failed to disconnect card: %v", err)
		}
	}()

	var name pcsc.CardName
	if status, err := sc.Status(); err == nil {
		name = describeATR(status.Atr, w)
	} else {
		logger.WithError(err).Warn("card status unavailable")
	}

	client := iso7816.NewClient(sc)
	if uid, err := pcsc.GetUID(client); err == nil {
		fmt.Fprintf(w, "UID: %X\n", uid)
	} else {
		logger.WithError(err).Warn("GET UID failed")
	}

	rd := ultralight.NewReader(client)
	rd.Name = name
	if cmd.Trace {
		rd.Report = os.Stderr
	}
	c, err := rd.Read()
	if err != nil {
		return err
	}

	if cmd.Out != "" {
		if err := writeDump(cmd.Out, c); err != nil {
			return err
		}
		logger.Infof("dump written to %s", cmd.Out)
	}
	return classify(c, w)
}

// describeATR prints the ATR and returns the card name it announces, or
// zero.
func describeATR(atr []byte, w io.Writer) pcsc.CardName {
	fmt.Fprintf(w, "ATR: %X\n", atr)
	parsed, err := pcsc.ParseATR(atr)
	if err != nil {
		logger.WithError(err).Warn("ATR not understood")
		return 0
	}
	sc, err := parsed.StorageCard()
	if err != nil {
		logger.WithError(err).Debug("no storage card descriptor")
		return 0
	}
	fmt.Fprintln(w, sc.Describe())
	if !sc.Name.IsUltralight() {
		logger.Warnf("%s is not an Ultralight family card, page reads will likely fail", sc.Name)
	}
	return sc.Name
}

func writeDump(path string, c *card.Card) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}
