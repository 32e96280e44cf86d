// Command pcsc-terminal is an interactive APDU shell for PC/SC smart card readers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gregLibert/pcsc-terminal/pkg/config"
	"github.com/gregLibert/pcsc-terminal/pkg/iso7816"
	"github.com/gregLibert/pcsc-terminal/pkg/logging"
	"github.com/gregLibert/pcsc-terminal/pkg/reader"
	"github.com/gregLibert/pcsc-terminal/pkg/shell"
	"github.com/gregLibert/pcsc-terminal/pkg/tlv"
)

var logger = logging.New("Main")

var (
	cfgFile     string
	listReaders bool
	cfg         config.Config
)

var app = &cli.App{
	Name:  "pcsc-terminal",
	Usage: "CLI for PC/SC readers",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:        "list-readers",
			Aliases:     []string{"l"},
			Usage:       "list available readers",
			Destination: &listReaders,
		},
		&cli.StringFlag{
			Name:    "reader",
			Aliases: []string{"r"},
			Value:   config.DefaultReader,
			Usage:   "`READER` to use: either index or full name, first reader is used by default",
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "YAML configuration `FILE`",
			Destination: &cfgFile,
		},
		&cli.StringFlag{
			Name:  "history-file",
			Value: config.DefaultHistoryFile,
			Usage: "shell history `FILE`, empty to disable",
		},
		&cli.IntFlag{
			Name:  "max-depth",
			Value: tlv.DefaultMaxDepth,
			Usage: "maximum nesting of constructed BER-TLV elements",
		},
		&cli.BoolFlag{
			Name:  "auto-response",
			Usage: "send GET RESPONSE on 61XX and repeat the command on 6CXX",
		},
	},
	Before: func(c *cli.Context) (err error) {
		if cfg, err = loadConfig(c); err != nil {
			return err
		}
		logging.SetLevel(cfg.LogLevel)
		return nil
	},
	Action: runTerminal,
	Commands: []*cli.Command{
		{
			Name:      "decode",
			Usage:     "Decode BER-TLV bytes given as hex arguments or on standard input",
			ArgsUsage: "[HEX...]",
			Action:    runDecode,
		},
	},
}

func loadConfig(c *cli.Context) (config.Config, error) {
	path, optional := cfgFile, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	loaded, err := config.Load(path, optional)
	if err != nil {
		return loaded, err
	}

	if c.IsSet("reader") {
		loaded.Reader = c.String("reader")
	}
	if c.IsSet("history-file") {
		loaded.HistoryFile = c.String("history-file")
	}
	if c.IsSet("max-depth") {
		loaded.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("auto-response") {
		loaded.AutoResponse = c.Bool("auto-response")
	}
	return loaded, loaded.Validate()
}

func runDecode(c *cli.Context) error {
	input := strings.Join(c.Args().Slice(), "")
	if c.NArg() == 0 {
		stdin, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		input = string(stdin)
	}

	data, err := tlv.ParseHex(input)
	if err != nil {
		return cli.Exit(fmt.Sprintf(">>> Invalid input data: %v", err), 1)
	}
	elements, err := tlv.NewDecoder(tlv.WithMaxDepth(cfg.MaxDepth)).Decode(data)
	if err != nil {
		return cli.Exit(fmt.Sprintf(">>> Invalid input data: %v", err), 1)
	}
	return tlv.Render(os.Stdout, elements)
}

func printReaders() error {
	pc, err := reader.Establish()
	if err != nil {
		return err
	}
	defer pc.Release()

	readers, err := pc.Readers()
	if err != nil {
		return err
	}
	fmt.Println("List of available readers:")
	for i, name := range readers {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

func runTerminal(c *cli.Context) error {
	if listReaders {
		return printReaders()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := reader.Open(ctx, cfg.Reader)
	if errors.Is(err, reader.ErrReaderNotFound) {
		fmt.Println("Cannot find reader with this index or name.")
		return cli.Exit("", 1)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing card session", zap.Error(err))
		}
	}()

	history := shell.NewHistory(cfg.HistorySize)
	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	if historyPath != "" {
		if err := history.Load(historyPath); err != nil {
			logger.Warn("history not loaded", zap.Error(err))
		}
	}

	err = repl(ctx, session, history)

	fmt.Println("Exiting...")
	if historyPath != "" {
		if err := history.Save(historyPath); err != nil {
			logger.Warn("history not saved", zap.Error(err))
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func repl(ctx context.Context, card iso7816.Transmitter, history *shell.History) error {
	var (
		in  shell.LineReader
		out io.Writer
	)
	if shell.IsTerminal(os.Stdin) {
		t, err := shell.NewTerminal(os.Stdin, os.Stdout, history)
		if err != nil {
			return err
		}
		defer t.Close()
		in, out = t, t
	} else {
		in, out = shell.NewScanner(os.Stdin, os.Stdout), os.Stdout
	}

	shell.PrintBanner(out)
	client := iso7816.NewClient(card, iso7816.WithAutoResponse(cfg.AutoResponse))
	decoder := tlv.NewDecoder(tlv.WithMaxDepth(cfg.MaxDepth))
	return shell.New(client, in, out, shell.WithDecoder(decoder)).Run(ctx)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
