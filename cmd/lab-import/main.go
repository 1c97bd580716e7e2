package main

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/ingest"
	"Go2AdversaryLab/internal/logging"
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/notify"
	"Go2AdversaryLab/internal/store"
	"Go2AdversaryLab/pkg/pcap"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	class := flag.String("class", string(model.Allowed), "class of every connection in the capture: allowed | blocked")
	port := flag.Uint("port", 0, "only import connections to this server port (0 = any)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <capture.pcap>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	capturePath := flag.Arg(0)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.Logging.Level)

	c := model.Class(*class)
	if c != model.Allowed && c != model.Blocked {
		logger.Fatalf("Unknown class '%s'", *class)
	}
	if *port > 65535 {
		logger.Fatalf("Invalid port %d", *port)
	}

	if cfg.Store.Type != "redis" {
		logger.Warn("The memory store does not outlive this process; imported connections will be lost.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	var notifier model.Notifier
	if cfg.NATS.Enabled {
		n, err := notify.NewNATSNotifier(cfg.NATS, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer n.Close()
		notifier = n
	}

	reader, err := pcap.NewReader(capturePath, logger)
	if err != nil {
		logger.Fatalf("Failed to open capture: %v", err)
	}
	defer reader.Close()
	logger.Infof("Reading packets from '%s'...", capturePath)

	packets := make(chan *model.PacketInfo, 1024)
	go reader.ReadPackets(ctx, packets)

	importer := ingest.NewImporter(s, notifier, logger)
	importer.ServerPort = uint16(*port)
	summary, err := importer.Import(ctx, packets, c)
	if err != nil {
		logger.Fatalf("Import failed: %v", err)
	}
	logger.Infof("Imported %d of %d connections (%d packets).", summary.Stored, summary.Connections, summary.Packets)
}
