package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
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
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// MigrateAction はmigrateサブコマンドの操作種別。
type MigrateAction string

const (
	MigrateUp      MigrateAction = "up"
	MigrateDown    MigrateAction = "down"
	MigrateVersion MigrateAction = "version"
)

// MigrateOptions はmigrateサブコマンドの解析結果。
type MigrateOptions struct {
	Action MigrateAction
	Steps  int // downで巻き戻す件数
}

// ParseMigrateArgs はmigrate以降の引数を解析する。
//
//	migrate             → up
//	migrate up          → up
//	migrate down [n]    → down（nの既定値は1）
//	migrate version     → version
func ParseMigrateArgs(args []string) (MigrateOptions, error) {
	if len(args) == 0 {
		return MigrateOptions{Action: MigrateUp}, nil
	}

	switch MigrateAction(args[0]) {
	case MigrateUp:
		return MigrateOptions{Action: MigrateUp}, nil
	case MigrateVersion:
		return MigrateOptions{Action: MigrateVersion}, nil
	case MigrateDown:
		opts := MigrateOptions{Action: MigrateDown, Steps: 1}
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return MigrateOptions{}, fmt.Errorf("invalid step count %q: must be a positive integer", args[1])
			}
			opts.Steps = n
		}
		return opts, nil
	default:
		return MigrateOptions{}, fmt.Errorf("unknown migrate action %q (want up, down or version)", args[0])
	}
}
