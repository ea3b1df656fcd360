package main

import (
	"chatnet/internal/chatnet"
	"chatnet/internal/storage"
	"chatnet/internal/storage/badgerstore"
	"chatnet/internal/txcodec"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage:
  chatnet seed <users.json>   create the chat network and import users
  chatnet submit              read a transaction envelope from stdin and run it
  chatnet show <chat id>      print a chat with its members and messages`

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// a missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		sugar.Fatalf("Cannot parse env config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := openStore(ctx, sugar, cfg)
	if err != nil {
		sugar.Fatalf("Cannot open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	var opts []chatnet.Option
	opts = append(opts, chatnet.WithEmitter(chatnet.LogEmitter{Logger: sugar.Named("events")}))
	if !cfg.EnforceAuthorization {
		opts = append(opts, chatnet.WithoutAuthorization())
	}
	processor := chatnet.NewProcessor(sugar, store, opts...)

	switch cmd := os.Args[1]; cmd {
	case "seed":
		err = seed(ctx, store, cfg.NetworkName, os.Args[2:])
	case "submit":
		err = submit(ctx, processor)
	case "show":
		err = show(ctx, processor, os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		sugar.Errorf("%s: %v", os.Args[1], err)
		closeStore()
		logger.Sync()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, logger *zap.SugaredLogger, cfg EnvConfig) (chatnet.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		s, err := storage.New(ctx, logger, cfg.Postgres.DSN(), storage.ConnectionTimeout(cfg.ConnectionTimeout))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "badger":
		s, err := badgerstore.Open(logger, cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Errorf("Closing badger: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func seed(ctx context.Context, store chatnet.Store, networkName string, args []string) error {
	var users []chatnet.User
	if len(args) > 0 {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &users); err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}
	}
	return chatnet.Seed(ctx, store, networkName, users)
}

func submit(ctx context.Context, processor *chatnet.Processor) error {
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	var d txcodec.Decoder
	envelope, err := d.Decode(body)
	if err != nil {
		return err
	}
	return processor.Submit(chatnet.WithCaller(ctx, envelope.Caller), envelope.Transaction)
}

func show(ctx context.Context, processor *chatnet.Processor, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("show needs exactly one chat id")
	}
	view, err := processor.ViewChat(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
