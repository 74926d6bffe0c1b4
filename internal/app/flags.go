package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/hitoshi/todoweb/internal/config"
)

// Flags は環境変数の設定を上書きするコマンドラインフラグ。
// 空文字列のフラグは上書きしない。
type Flags struct {
	StoreURL string
	Port     string
	Email    string
}

// errHelp は--helpが指定されたことを示す。
var errHelp = errors.New("help requested")

// parseFlags はサブコマンドのフラグを解析する。
// --emailはtuiサブコマンドでのみ受け付ける。
func parseFlags(cmd Command, args []string, out io.Writer) (*Flags, error) {
	flags := &Flags{}

	flagSet := pflag.NewFlagSet("todoweb "+string(cmd), pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&flags.StoreURL, "store-url", "", "remote todo store base URL (overrides TODO_API_URL)")
	flagSet.StringVar(&flags.Port, "port", "", "HTTP listen port (overrides SERVER_PORT)")
	if cmd == CommandTUI {
		flagSet.StringVar(&flags.Email, "email", "", "resolve this email on startup instead of prompting")
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errHelp
		}
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	return flags, nil
}

// apply はフラグで指定された値をConfigに反映する。
func (f *Flags) apply(cfg *config.Config) error {
	if f.StoreURL != "" {
		storeURL, err := config.NormalizeStoreURL(f.StoreURL)
		if err != nil {
			return err
		}
		cfg.StoreURL = storeURL
	}
	if f.Port != "" {
		cfg.ServerPort = f.Port
	}
	return nil
}
