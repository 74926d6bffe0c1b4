// Command todoweb はリモートのTodoストアを操作するWebクライアントと端末クライアント。
//
//	todoweb [serve]       Webサーバーとして起動する（既定）
//	todoweb tui           端末クライアントとして起動する
//	todoweb healthcheck   起動中のサーバーの /health を確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/todoweb/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
