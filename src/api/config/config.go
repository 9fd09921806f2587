package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN  string
	RedisURL  string
	JWTSecret string
	Port      string
	CertFile  string
	KeyFile   string

	// Chain gateway
	ChainRPCURL string
	ChainID     string
	DevMode     bool // serve from an in-process log instead of the gateway

	// Content-addressed store
	IPFSEndpoint string
	IPFSEmail    string
	IPFSSpace    string
	IPFSGateway  string

	// Media host
	BlobEndpoint string
	BlobPreset   string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	dev, _ := strconv.ParseBool(getenv("DEV_MODE", "false"))
	return Config{
		MySQLDSN:     getenv("MYSQL_DSN", "sociva:sociva@tcp(127.0.0.1:3306)/sociva"),
		RedisURL:     getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", ""),
		Port:         getenv("PORT", "8080"),
		CertFile:     os.Getenv("TLS_CERT_FILE"),
		KeyFile:      os.Getenv("TLS_KEY_FILE"),
		ChainRPCURL:  getenv("CHAIN_RPC_URL", "ws://127.0.0.1:8546"),
		ChainID:      getenv("CHAIN_ID", "0xaa36a7"), // Sepolia
		DevMode:      dev,
		IPFSEndpoint: getenv("IPFS_ENDPOINT", "https://up.notemoire.io"),
		IPFSEmail:    getenv("IPFS_EMAIL", "ops@notemoire.io"),
		IPFSSpace:    getenv("IPFS_SPACE", "did:key:z6MkqyFHUpvbCke5d15uBW3QEY1TdhuAnfpFEhjK5HDWBEF8"),
		IPFSGateway:  getenv("IPFS_GATEWAY", "ipfs.io"),
		BlobEndpoint: getenv("BLOB_ENDPOINT", "https://api.cloudinary.com/v1_1/notemoire"),
		BlobPreset:   getenv("BLOB_PRESET", "notemoire"),
	}
}
