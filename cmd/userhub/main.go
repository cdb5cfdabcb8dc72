// userhubのエントリポイント。
// ユーザーレコードのCRUD APIと州ごとの集計を提供し、
// ユーザーの作成・更新・削除時にメール通知を送信する。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/userhub/internal/config"
	"github.com/nao1215/userhub/internal/server"
	"github.com/nao1215/userhub/pkg/middleware"
)

func main() {
	tokenSubject := flag.String("token", "", "指定したsubjectのJWTを発行して終了する")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "-tokenで発行するJWTの有効期間")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	if *tokenSubject != "" {
		token, err := middleware.GenerateJWT(cfg.JWTSecret, *tokenSubject, *tokenTTL)
		if err != nil {
			log.Fatalf("JWTの発行に失敗: %v", err)
		}
		fmt.Fprintln(os.Stdout, token)
		return
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("サーバーの初期化に失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("userhubを起動します: :%s (mail=%s, auth=%t)", cfg.Port, cfg.Mail.Transport, cfg.AuthEnabled())
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("userhubの実行に失敗: %v", err)
	}
	log.Printf("userhubを停止しました")
}
