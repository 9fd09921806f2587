package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/notemoire/sociva/src/api/config"
	"github.com/notemoire/sociva/src/api/data"
	"github.com/notemoire/sociva/src/api/types"
	"github.com/notemoire/sociva/src/api/webserver"
	"github.com/notemoire/sociva/src/blobstore"
	"github.com/notemoire/sociva/src/chain"
	"github.com/notemoire/sociva/src/ipfs"
	"github.com/notemoire/sociva/src/publisher"
)

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(&types.Profile{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func main() {
	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)
	rdb := data.MustRedis(cfg.RedisURL)

	var sivLog chain.Log
	if cfg.DevMode {
		log.Printf("dev mode: using in-process log on chain %s", cfg.ChainID)
		sivLog = chain.NewMemLog(cfg.ChainID)
	} else {
		sivLog = chain.NewBridge(cfg.ChainRPCURL)
	}

	store := ipfs.NewClient(ipfs.Config{
		Endpoint: cfg.IPFSEndpoint,
		Email:    cfg.IPFSEmail,
		Space:    cfg.IPFSSpace,
		Gateway:  cfg.IPFSGateway,
	})
	blobs := blobstore.NewClient(blobstore.Config{
		Endpoint:     cfg.BlobEndpoint,
		UploadPreset: cfg.BlobPreset,
	})
	pub := publisher.New(sivLog, store, blobs, cfg.ChainID)

	router := webserver.New(cfg, db, rdb, sivLog, pub)
	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		var err error
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			var reloader *webserver.TLSReloader
			reloader, err = webserver.NewTLSReloader(cfg.CertFile, cfg.KeyFile)
			if err != nil {
				log.Fatalf("tls: %v", err)
			}
			httpSrv.TLSConfig = reloader.GetConfig()
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Sociva API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
