// Command goatnotes はGOAT NotesのWebサーバー・ワーカー・マイグレーションを起動する。
//
//	goatnotes [serve|worker|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/hitoshi/goatnotes/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
