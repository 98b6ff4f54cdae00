// Command agendamentos は実験機器予約サービスを起動する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（デフォルト）
//	migrate      データベースマイグレーションを適用する
//	seed         空のテーブルにサンプルの機器・ユーザーを投入する
//	healthcheck  /health を確認する（コンテナのヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "agendamentos: %v\n", err)
		os.Exit(1)
	}
}
