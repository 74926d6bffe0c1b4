package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandTUI は端末クライアントとして起動することを示す。
	CommandTUI Command = "tui"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "tui":
		return CommandTUI
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// commandArgs はサブコマンド名を除いた残りの引数を返す。
// 先頭がサブコマンド名でなければ（フラグのみの場合など）そのまま返す。
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	switch Command(args[0]) {
	case CommandServe, CommandTUI, CommandHealthcheck:
		return args[1:]
	}
	return args
}
