// podbeacon-decode decodes captured proximity pairing payloads offline.
//
// Payloads are hex strings (spaces, colons and a 0x prefix are ignored),
// taken from the arguments or, when there are none, one per line on stdin.
// If an encryption key is provided, the tail is also decrypted.
//
// Usage:
//
//	podbeacon-decode [-export] [-key HEX] [PAYLOAD...]
//
// Examples:
//
//	podbeacon-decode 0719012720 0b998f110005 63fcfbb439011c61e7e4aa95832c5b57
//	btmon-extract | podbeacon-decode -key a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"podbeacon/internal/config"
	"podbeacon/internal/logger"
	"podbeacon/internal/proximity"
)

var errNotProximity = errors.New("not a proximity pairing record")

func main() {
	os.Exit(run())
}

func run() int {
	export := flag.Bool("export", false, "also print the redacted record as hex")
	keyHex := flag.String("key", "", "accessory encryption key (32 hex characters)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-export] [-key HEX] [PAYLOAD...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	closeLog, err := logger.Setup(config.Default().Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	key, err := config.Decrypt{Key: *keyHex}.KeyBytes()
	if err != nil {
		log.Error().Err(err).Msg("invalid encryption key")
		return 1
	}

	d := decoder{out: os.Stdout, key: key, export: *export}

	var failed int
	if flag.NArg() > 0 {
		// Arguments may split one payload across several words.
		if err := d.decode(strings.Join(flag.Args(), "")); err != nil {
			log.Error().Err(err).Msg("decode failed")
			failed++
		}
	} else {
		failed, err = d.decodeLines(os.Stdin)
		if err != nil {
			log.Error().Err(err).Msg("failed to read stdin")
			return 1
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}

type decoder struct {
	out    io.Writer
	key    []byte
	export bool
}

// decodeLines decodes every non-empty line of r and returns how many failed.
func (d decoder) decodeLines(r io.Reader) (int, error) {
	failed := 0
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := d.decode(text); err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping payload")
			failed++
		}
	}
	return failed, sc.Err()
}

func (d decoder) decode(payload string) error {
	data, err := parseHex(payload)
	if err != nil {
		return err
	}

	record, ok := proximity.Decode(data)
	if !ok {
		return fmt.Errorf("%w (%d bytes)", errNotProximity, len(data))
	}

	fmt.Fprintln(d.out, proximity.Render(record))

	if d.export {
		fmt.Fprintf(d.out, "Redacted Record: %s\n", hex.EncodeToString(record.Redact().Bytes()))
	}

	if d.key != nil {
		// Decryption needs the raw tail, so it runs on the unredacted record.
		precise, err := proximity.DecryptTail(record, d.key)
		if err != nil {
			fmt.Fprintf(d.out, "Decryption: %v\n", err)
		} else {
			fmt.Fprintf(d.out, "Precise Battery: left %s, right %s, case %s\n",
				preciseText(precise.Left, precise.LeftCharging),
				preciseText(precise.Right, precise.RightCharging),
				preciseText(precise.Case, precise.CaseCharging))
		}
	}

	fmt.Fprintln(d.out)
	return nil
}

// parseHex accepts "07 19 01", "07:19:01" and "0x071901".
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return data, nil
}

func preciseText(level *uint8, charging bool) string {
	if level == nil {
		return "--"
	}
	if charging {
		return fmt.Sprintf("%d%% (charging)", *level)
	}
	return fmt.Sprintf("%d%%", *level)
}
