package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gregLibert/transit-card/pkg/card"
	"github.com/gregLibert/transit-card/pkg/decoders"
	"github.com/gregLibert/transit-card/pkg/keyhash"
	"github.com/gregLibert/transit-card/pkg/transit"
)

func runClassify(cmd *classifyCmd, w io.Writer) error {
	raw, err := os.ReadFile(cmd.File)
	if err != nil {
		return err
	}
	var c card.Card
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("%s: %w", cmd.File, err)
	}
	return classify(&c, w)
}

func classify(c *card.Card, w io.Writer) error {
	model := c.Model()
	if model == "" {
		model = "unknown"
	}
	fmt.Fprintf(w, "Model: %s, %d pages\n", model, c.PageCount())

	res, err := decoders.Registry().Parse(c)
	if errors.Is(err, transit.ErrClassification) {
		fmt.Fprintln(w, "Card: not recognised")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Card: %s [%s]\n", res.Identity, res.Factory)
	return nil
}

func runKeyhash(cmd *keyhashCmd, w io.Writer) error {
	key, err := hex.DecodeString(cmd.Key)
	if err != nil {
		return fmt.Errorf("key: %w", err)
	}

	digest, err := keyhash.Digest(key, cmd.Salt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Digest: %s\n", digest)

	if len(cmd.Digests) == 0 {
		return nil
	}
	idx, err := keyhash.Match(key, cmd.Salt, cmd.Digests...)
	fmt.Fprintf(w, "Match: %d\n", keyhash.Code(idx, err))
	return nil
}
